package api

import (
	"net/http"

	"webmake/internal/audit"
	"webmake/internal/domain"
)

type publishSuccessResponse struct {
	URL string `json:"url"`
}

type publishFallbackResponse struct {
	Message   string `json:"message"`
	ZipBase64 string `json:"zipBase64"`
}

// handlePublish serves POST /api/publish. Success and Fallback are both 200;
// Failure maps its error kind to 400 or 500.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeErr(ctx, w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req domain.PublishRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDecodeErr(ctx, w, err)
		s.logAudit(r, &audit.AuditEvent{
			Action:     audit.ActionPublish,
			Outcome:    audit.OutcomeFailure,
			ErrorKind:  string(domain.ErrInvalidRequest),
			StatusCode: http.StatusBadRequest,
		})
		return
	}

	res := s.publisher.Publish(ctx, req)
	provider, _ := domain.ParseProvider(req.Provider)
	event := &audit.AuditEvent{
		Action:   audit.ActionPublish,
		Provider: string(provider),
		Outcome:  string(res.Kind),
	}

	switch res.Kind {
	case domain.ResultSuccess:
		event.URL = res.URL
		event.StatusCode = http.StatusOK
		writeJSON(w, http.StatusOK, publishSuccessResponse{URL: res.URL})
	case domain.ResultFallback:
		event.StatusCode = http.StatusOK
		writeJSON(w, http.StatusOK, publishFallbackResponse{
			Message:   res.Message,
			ZipBase64: res.ArchiveBase64(),
		})
	default:
		code := res.ErrorKind.HTTPStatus()
		event.ErrorKind = string(res.ErrorKind)
		event.StatusCode = code
		s.writeErr(ctx, w, code, string(res.ErrorKind), res.Details)
	}
	s.logAudit(r, event)
}
