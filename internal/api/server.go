package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"

	"webmake/internal/audit"
	"webmake/internal/auth"
	"webmake/internal/domain"
	"webmake/internal/observability"
	"webmake/internal/publish"
	"webmake/internal/site"
)

// DefaultMaxBodyBytes caps request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 5 << 20

type apiError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// Publisher runs the publish-or-fallback workflow.
type Publisher interface {
	Publish(ctx context.Context, req domain.PublishRequest) domain.PublishResult
	Config() publish.Config
}

// Generator produces site copy from a brief.
type Generator interface {
	Available() bool
	Generate(ctx context.Context, brief domain.BusinessBrief) (domain.SiteContent, error)
}

type Server struct {
	mux         *http.ServeMux
	publisher   Publisher
	generator   Generator
	renderer    site.Renderer
	logger      observability.Logger
	metrics     *observability.Metrics
	auditLogger audit.AuditLogger
	keys        *auth.KeyRing
	maxBody     int64
}

// NewServer creates a new HTTP server with the given dependencies.
// If logger is nil, a default logger will be used.
// If metrics is nil, metrics collection is disabled.
// If auditLogger is nil, a memory-based audit logger will be used.
// A nil generator leaves /api/generate answering 503.
func NewServer(mux *http.ServeMux, publisher Publisher, generator Generator, logger observability.Logger, metrics *observability.Metrics, auditLogger audit.AuditLogger) *Server {
	if logger == nil {
		logger = observability.NewLogger(observability.DefaultConfig())
	}
	if auditLogger == nil {
		auditLogger = audit.NewMemoryAuditLogger()
	}
	return &Server{
		mux:         mux,
		publisher:   publisher,
		generator:   generator,
		logger:      logger,
		metrics:     metrics,
		auditLogger: auditLogger,
		maxBody:     DefaultMaxBodyBytes,
	}
}

// SetKeyRing enables the access-key gate on mutating endpoints.
func (s *Server) SetKeyRing(keys *auth.KeyRing) { s.keys = keys }

// SetMaxBodyBytes overrides the request body cap. Non-positive values are ignored.
func (s *Server) SetMaxBodyBytes(n int64) {
	if n > 0 {
		s.maxBody = n
	}
}

// SetRenderer replaces the site renderer, e.g. with a fixed clock in tests.
func (s *Server) SetRenderer(r site.Renderer) { s.renderer = r }

func (s *Server) writeErr(ctx context.Context, w http.ResponseWriter, code int, msg string, details string) {
	fields := []any{
		"status", code,
		"error", msg,
	}
	if details != "" {
		fields = append(fields, "details", details)
	}
	if code >= 500 {
		s.logger.ErrorContext(ctx, "request failed", fields...)
		sentry.CaptureMessage(fmt.Sprintf("HTTP %d: %s (details: %s)", code, msg, details))
	} else {
		s.logger.WarnContext(ctx, "request failed", fields...)
	}
	writeJSON(w, code, apiError{Error: msg, Details: details})
}

// errBodyTooLarge wraps http.MaxBytesError for writeDecodeErr.
var errBodyTooLarge = errors.New("request body too large")

// decodeJSON reads a capped JSON body into v.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, maxErr.Limit)
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// writeDecodeErr maps a decodeJSON failure to 413 or 400.
func (s *Server) writeDecodeErr(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, errBodyTooLarge) {
		s.writeErr(ctx, w, http.StatusRequestEntityTooLarge, errBodyTooLarge.Error(), err.Error())
		return
	}
	s.writeErr(ctx, w, http.StatusBadRequest, string(domain.ErrInvalidRequest), err.Error())
}

// logAudit records an attempt. Audit failures are logged and never fail the request.
func (s *Server) logAudit(r *http.Request, event *audit.AuditEvent) {
	if s.auditLogger == nil || event == nil {
		return
	}
	ctx := r.Context()
	event.Actor = auth.KeyHintFromContext(ctx)
	event.RequestID = observability.RequestIDFromContext(ctx)
	event.IPAddress = clientKey(r)
	if err := s.auditLogger.Log(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", "action", event.Action, "error", err)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) { s.status = code; s.ResponseWriter.WriteHeader(code) }

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

// RegisterRoutes registers all HTTP routes. Mutating endpoints and the audit
// listing sit behind the access-key gate when a key ring is configured.
func (s *Server) RegisterRoutes() {
	// Public endpoints (no auth required)
	s.mux.HandleFunc("/openapi.yaml", s.handleOpenAPISpec)
	s.mux.HandleFunc("/healthz", s.handleHealth)
	s.mux.HandleFunc("/readyz", s.handleReady)
	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}
	s.mux.HandleFunc("/api/providers", s.handleProviders)
	s.mux.HandleFunc("/api/render", s.handleRender)

	keyMW := AuthMiddleware(s.keys, s.logger.Slog())
	s.mux.Handle("/api/publish", keyMW(http.HandlerFunc(s.handlePublish)))
	s.mux.Handle("/api/generate", keyMW(http.HandlerFunc(s.handleGenerate)))
	s.mux.Handle("/api/export", keyMW(http.HandlerFunc(s.handleExport)))
	s.mux.Handle("/api/audit", keyMW(http.HandlerFunc(s.handleAuditList)))
}
