package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - logged with full technical details and the request id (server-side)
//   - mapped to a status code from its type
//   - returned as ErrorResponse JSON with a user-friendly message and code
//
// Not-found responses also carry a sample of known identifiers so the
// caller can correct a mistyped id.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/releaseboard/internal/core"
	"github.com/go-chi/chi/v5/middleware"
)

var errRateLimited = errors.New("rate limit exceeded")

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error       string   `json:"error"`
	Message     string   `json:"message"`
	Action      string   `json:"action,omitempty"`
	Code        string   `json:"code"`
	Detail      string   `json:"detail,omitempty"`
	KnownSample []string `json:"known_sample,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	var (
		notFound   *core.NotFoundError
		validation *core.ValidationError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotEditable):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyIngests):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes it as an ErrorResponse. The status is
// derived from the error type.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	// Technical text is only echoed for client errors.
	detail := ""
	if status < http.StatusInternalServerError {
		detail = err.Error()
	}

	var notFound *core.NotFoundError
	if errors.As(err, &notFound) {
		writeJSON(w, status, ErrorResponse{
			Error:       userMsg.Message,
			Message:     userMsg.Message,
			Action:      userMsg.Action,
			Code:        userMsg.Code,
			Detail:      detail,
			KnownSample: notFound.KnownSample,
		})
		return
	}

	respondErrorJSON(w, userMsg, status, detail)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Detail:  detail,
	})
}
