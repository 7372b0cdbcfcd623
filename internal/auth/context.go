package auth

import "context"

type contextKey string

const keyHintContextKey contextKey = "keyHint"

// ContextWithKeyHint stores the masked hint of the authenticated key.
func ContextWithKeyHint(ctx context.Context, hint string) context.Context {
	if hint == "" {
		return ctx
	}
	return context.WithValue(ctx, keyHintContextKey, hint)
}

// KeyHintFromContext returns the masked key hint, or "" for anonymous
// requests.
func KeyHintFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	hint, _ := ctx.Value(keyHintContextKey).(string)
	return hint
}
