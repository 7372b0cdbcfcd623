package api

import (
	"net/http"
	"strconv"

	apidocs "webmake/docs"
	"webmake/internal/audit"
	"webmake/internal/domain"
	"webmake/internal/publish"
)

func (s *Server) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErr(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(apidocs.OpenAPISpec)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"auth_enabled":   s.keys.Enabled(),
		"llm_configured": s.generator != nil && s.generator.Available(),
	})
}

// ReadinessResponse represents the JSON response for the readiness check endpoint.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// handleReady checks that the audit store is reachable.
// Returns 200 OK if all checks pass, 503 Service Unavailable otherwise.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErr(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	ctx := r.Context()
	resp := ReadinessResponse{Status: "ok", Checks: map[string]string{"audit": "ok"}}
	if err := s.auditLogger.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Checks["audit"] = "error"
		s.logger.ErrorContext(ctx, "readiness check failed", "check", "audit", "error", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ProviderStatus reports whether a provider can publish directly. Only key
// names are exposed, never values.
type ProviderStatus struct {
	Provider     domain.Provider `json:"provider"`
	Configured   bool            `json:"configured"`
	RequiredKeys []string        `json:"requiredKeys"`
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErr(r.Context(), w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}
	cfg := s.publisher.Config()
	out := make([]ProviderStatus, 0, len(domain.Providers))
	for _, p := range domain.Providers {
		out = append(out, ProviderStatus{
			Provider:     p,
			Configured:   cfg.Configured(p),
			RequiredKeys: publish.RequiredKeys(p),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": out})
}

// AuditListResponse is the body of GET /api/audit.
type AuditListResponse struct {
	Events []*audit.AuditEvent `json:"events"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

func (s *Server) handleAuditList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodGet {
		s.writeErr(ctx, w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	q := r.URL.Query()
	opts := audit.ListOptions{
		Action:   q.Get("action"),
		Provider: q.Get("provider"),
		Outcome:  q.Get("outcome"),
		Limit:    50,
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			s.writeErr(ctx, w, http.StatusBadRequest, "invalid limit", "limit must be between 1 and 1000")
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeErr(ctx, w, http.StatusBadRequest, "invalid offset", "offset must be a non-negative integer")
			return
		}
		opts.Offset = n
	}

	events, total, err := s.auditLogger.List(ctx, opts)
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, "internal error", err.Error())
		return
	}
	if events == nil {
		events = []*audit.AuditEvent{}
	}
	writeJSON(w, http.StatusOK, AuditListResponse{Events: events, Total: total, Limit: opts.Limit, Offset: opts.Offset})
}
