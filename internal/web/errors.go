package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is logged with the request ID and returned to the client as a
// coded user message from core.MapError. HTMX requests get an HTML fragment,
// API requests get JSON, and page requests get plain text.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/genecheck/internal/core"
	"github.com/JonMunkholm/genecheck/internal/logging"
	"github.com/JonMunkholm/genecheck/internal/table"
	"github.com/JonMunkholm/genecheck/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// newErrorResponse builds the JSON body for a mapped error. Uncoded errors
// carry only the generic message; their details stay in the log.
func newErrorResponse(uerr *core.UserError) *ErrorResponse {
	resp := &ErrorResponse{
		Error:   uerr.Technical.Error(),
		Message: uerr.User.Message,
		Action:  uerr.User.Action,
		Code:    uerr.User.Code,
	}
	if !core.IsUserFacing(uerr.Technical) {
		resp.Error = uerr.User.Message
	}
	return resp
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var dupErr *core.DuplicateAccessionsError
	switch {
	case errors.Is(err, core.ErrTooManyValidations):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrRunNotFound), errors.Is(err, core.ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, table.ErrEmptySource),
		errors.Is(err, table.ErrMissingDefinition),
		errors.Is(err, table.ErrInvalidCSV),
		errors.Is(err, table.ErrFileTooLarge):
		return http.StatusBadRequest
	case errors.As(err, &dupErr), core.IsUserFacing(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError handles error responses with user-friendly messages.
// It logs the technical error server-side and returns an appropriate response
// based on the request type (HTMX, JSON, or HTML).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	uerr := core.NewUserError(err)
	userMsg := uerr.User

	logger := logging.FromContext(r.Context())
	level := logger.Warn
	if statusCode >= http.StatusInternalServerError {
		level = logger.Error
	}
	level("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	switch {
	case isHTMX(r):
		s.renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		s.writeJSON(w, statusCode, newErrorResponse(uerr))
	default:
		respondErrorHTML(w, userMsg, statusCode)
	}
}

// respondErrorHTML writes a plain HTML error response.
func respondErrorHTML(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	http.Error(w, msg.Message+" ("+msg.Code+")", statusCode)
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func (s *Server) renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		s.logger.Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
