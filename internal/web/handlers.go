package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/JonMunkholm/releaseboard/internal/core"
	"github.com/JonMunkholm/releaseboard/internal/logging"
	"github.com/JonMunkholm/releaseboard/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// handleHealth reports liveness along with row and running-ingest counts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"rows":      s.service.RowCount(),
		"ingesting": s.ingests.Active(),
	})
}

// handleIngest replaces the stored batch with the posted JSON array.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := s.ingests.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	defer s.ingests.Release()

	rows, err := core.DecodeBatch(r.Body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.Ingest(ctx, rows)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(ctx).Info("batch ingested", "rows", result.Rows, "batch_id", result.BatchID)

	writeJSON(w, http.StatusOK, map[string]any{
		"message":  fmt.Sprintf("%d rows received.", result.Rows),
		"rows":     result.Rows,
		"batch_id": result.BatchID,
	})
}

// handleReleasesJSON returns the whole batch for the dashboard gadget.
func (s *Server) handleReleasesJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Rows())
}

// handleListIDs returns the identifier of every stored row.
func (s *Server) handleListIDs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.IDs())
}

// handleGetRow returns one row resolved from the path identifier.
func (s *Server) handleGetRow(w http.ResponseWriter, r *http.Request) {
	row, err := s.service.Row(ridParam(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

// ridParam returns the decoded {rid} path segment. chi routes on RawPath
// when the request carries one, and then leaves escapes in place.
func ridParam(r *http.Request) string {
	rid := chi.URLParam(r, "rid")
	if r.URL.RawPath == "" {
		return rid
	}
	if unescaped, err := url.PathUnescape(rid); err == nil {
		return unescaped
	}
	return rid
}

// patchRequest is the body of PATCH /releases/{rid}.
type patchRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

// handlePatchRow sets one field on a resolved row.
func (s *Server) handlePatchRow(w http.ResponseWriter, r *http.Request) {
	req, err := decodePatch(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	ctx := WithRequestMetadata(r.Context(), r)
	result, err := s.service.PatchField(ctx, ridParam(r), req.Field, req.Value)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"id":    result.ID,
		"field": result.Field,
		"value": result.Value,
	})
}

// decodePatch reads a patch body. Numbers are kept as json.Number so they
// are stored exactly as sent.
func decodePatch(r *http.Request) (patchRequest, error) {
	var req patchRequest

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r.Body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, err
		}
		return req, fmt.Errorf("read request body: %w", err)
	}

	dec := json.NewDecoder(&buf)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return req, &core.ValidationError{Message: "invalid json body", Err: err}
	}
	return req, nil
}

// handleRebuildIDs reassigns fallback identifiers in place.
func (s *Server) handleRebuildIDs(w http.ResponseWriter, r *http.Request) {
	ctx := WithRequestMetadata(r.Context(), r)
	n := s.service.RebuildIDs(ctx)

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"rows": n,
	})
}

// handleReleasesHTML renders the batch as a browsable table.
func (s *Server) handleReleasesHTML(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ReleasesPage(s.service.Rows()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render releases page", "error", err)
	}
}

// handleAuditLog returns recent audit entries, newest first.
func (s *Server) handleAuditLog(w http.ResponseWriter, r *http.Request) {
	limit := core.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.respondError(w, r, &core.ValidationError{Message: fmt.Sprintf("invalid limit %q", v)})
			return
		}
		limit = n
	}

	entries, err := s.service.AuditLog(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
