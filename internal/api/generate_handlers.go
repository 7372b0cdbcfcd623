package api

import (
	"errors"
	"net/http"

	"webmake/internal/audit"
	"webmake/internal/copywriter"
	"webmake/internal/domain"
)

// handleGenerate serves POST /api/generate: BusinessBrief in, SiteContent out.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeErr(ctx, w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var brief domain.BusinessBrief
	if err := s.decodeJSON(w, r, &brief); err != nil {
		s.writeDecodeErr(ctx, w, err)
		return
	}

	if s.generator == nil {
		s.writeGenerateErr(r, w, copywriter.ErrUnavailable)
		return
	}
	content, err := s.generator.Generate(ctx, brief)
	if err != nil {
		s.writeGenerateErr(r, w, err)
		return
	}

	s.metrics.RecordGeneration(audit.OutcomeSuccess)
	s.logAudit(r, &audit.AuditEvent{
		Action:     audit.ActionGenerate,
		Outcome:    audit.OutcomeSuccess,
		StatusCode: http.StatusOK,
	})
	writeJSON(w, http.StatusOK, content)
}

// writeGenerateErr maps copywriter sentinel errors to HTTP status codes,
// falling back to 502 for upstream failures.
func (s *Server) writeGenerateErr(r *http.Request, w http.ResponseWriter, err error) {
	ctx := r.Context()
	var code int
	switch {
	case errors.Is(err, copywriter.ErrInvalidBrief):
		code = http.StatusBadRequest
		s.writeErr(ctx, w, code, "invalid brief", err.Error())
	case errors.Is(err, copywriter.ErrUnavailable):
		code = http.StatusServiceUnavailable
		s.writeErr(ctx, w, code, "copy generation unavailable", err.Error())
	case errors.Is(err, copywriter.ErrBadCompletion):
		code = http.StatusBadGateway
		s.writeErr(ctx, w, code, "bad completion", err.Error())
	default:
		code = http.StatusBadGateway
		s.writeErr(ctx, w, code, "upstream error", err.Error())
	}

	s.metrics.RecordGeneration(audit.OutcomeFailure)
	s.logAudit(r, &audit.AuditEvent{
		Action:     audit.ActionGenerate,
		Outcome:    audit.OutcomeFailure,
		StatusCode: code,
	})
}
