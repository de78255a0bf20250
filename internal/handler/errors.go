package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/middleware"
)

// ErrorDetail and ErrorResponse are the JSON error envelope.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// classify maps a service error onto an HTTP status, an error code and a
// message safe to show the caller. Storage and unknown failures expose only
// a generic message.
func classify(err error) (status int, code, message string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err)
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized, "unauthorized", "login required"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", "admin role required"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", "record not found"
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict", "already exists"
	default:
		return http.StatusInternalServerError, "internal_error", "something went wrong, please try again"
	}
}

// unwrapMessage extracts the human-readable part after the validation
// sentinel, e.g.
// "service.VisitService.Record: validation error: name is required" → "name is required".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	marker := domain.ErrValidation.Error() + ": "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail reports err to the caller. API requests get the JSON envelope; page
// requests are redirected to the login page when unauthenticated and
// otherwise see the error page. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)
	if status >= http.StatusInternalServerError {
		s.Log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	if middleware.WantsJSON(r) {
		writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
		return
	}
	if status == http.StatusUnauthorized {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}
	s.render(w, r, status, "error", &basePage{Title: message})
}
