// Package audit records publish, export and generate attempts.
// It never stores site HTML, archives or credentials.
package audit

import (
	"context"
	"time"
)

// AuditEvent is a single recorded attempt.
type AuditEvent struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Actor      string    `json:"actor"`  // masked access key or "anonymous"
	Action     string    `json:"action"` // "publish", "export", "generate"
	Provider   string    `json:"provider,omitempty"`
	Outcome    string    `json:"outcome"` // "success", "fallback", "failure"
	ErrorKind  string    `json:"error_kind,omitempty"`
	URL        string    `json:"url,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	IPAddress  string    `json:"ip_address,omitempty"`
	StatusCode int       `json:"status_code"`
}

// ListOptions provides filtering and pagination options for listing audit events.
type ListOptions struct {
	Limit    int
	Offset   int
	Action   string
	Provider string
	Outcome  string
	Since    *time.Time
	Until    *time.Time
}

const (
	defaultListLimit = 50
	maxListLimit     = 1000
)

// normalize applies the default and maximum page size.
func (o ListOptions) normalize() ListOptions {
	if o.Limit <= 0 {
		o.Limit = defaultListLimit
	}
	if o.Limit > maxListLimit {
		o.Limit = maxListLimit
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// AuditLogger defines the interface for audit logging operations.
type AuditLogger interface {
	// Log records an audit event, assigning ID and Timestamp when unset.
	Log(ctx context.Context, event *AuditEvent) error

	// List retrieves events newest first, with the total matching count.
	List(ctx context.Context, opts ListOptions) ([]*AuditEvent, int, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Valid actions for audit events.
const (
	ActionPublish  = "publish"
	ActionExport   = "export"
	ActionGenerate = "generate"
)

// Valid outcomes. Publish outcomes mirror domain.ResultKind.
const (
	OutcomeSuccess  = "success"
	OutcomeFallback = "fallback"
	OutcomeFailure  = "failure"
)

// ActorAnonymous is recorded when no access key was presented.
const ActorAnonymous = "anonymous"
