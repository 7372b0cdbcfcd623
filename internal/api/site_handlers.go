package api

import (
	"net/http"
	"strconv"
	"strings"

	"webmake/internal/audit"
	"webmake/internal/domain"
	"webmake/internal/site"
)

// ExportFilename is the attachment name of exported archives.
const ExportFilename = "webmake-site.zip"

// handleRender serves POST /api/render: SiteContent in, HTML preview out.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeErr(ctx, w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var content domain.SiteContent
	if err := s.decodeJSON(w, r, &content); err != nil {
		s.writeDecodeErr(ctx, w, err)
		return
	}

	html := s.renderer.Render(content)
	etag := site.ETag(html)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if etagMatches(r.Header.Get("If-None-Match"), etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(html)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

// etagMatches reports whether an If-None-Match header lists etag.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}

// exportRequest accepts either ready HTML or SiteContent to render.
type exportRequest struct {
	domain.SiteContent
	HTML string `json:"html"`
}

// handleExport serves POST /api/export as a ZIP attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		s.writeErr(ctx, w, http.StatusMethodNotAllowed, "method not allowed", "")
		return
	}

	var req exportRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.writeDecodeErr(ctx, w, err)
		return
	}

	html := req.HTML
	if strings.TrimSpace(html) == "" {
		if strings.TrimSpace(req.Headline) == "" {
			s.writeErr(ctx, w, http.StatusBadRequest, string(domain.ErrInvalidRequest), "html or headline is required")
			return
		}
		html = s.renderer.Render(req.SiteContent)
	}

	archive, err := site.BuildArchive(html)
	if err != nil {
		s.writeErr(ctx, w, http.StatusInternalServerError, string(domain.ErrUnexpected), err.Error())
		s.logAudit(r, &audit.AuditEvent{
			Action:     audit.ActionExport,
			Outcome:    audit.OutcomeFailure,
			ErrorKind:  string(domain.ErrUnexpected),
			StatusCode: http.StatusInternalServerError,
		})
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ExportFilename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(archive)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive)

	s.logAudit(r, &audit.AuditEvent{
		Action:     audit.ActionExport,
		Outcome:    audit.OutcomeSuccess,
		StatusCode: http.StatusOK,
	})
}
