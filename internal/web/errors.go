package web

// errors.go provides unified error responses for the API.
//
// Every error is logged with its technical detail and request ID, then
// returned as a JSON body carrying the user-friendly message, suggested
// action and support code from core.MapError. Client errors that match the
// catalogue also carry their detail, so a rejected plan lists its steps.

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/schemamap/internal/core"
	"github.com/JonMunkholm/schemamap/internal/logging"
	"github.com/JonMunkholm/schemamap/internal/table"
)

// errMalformed marks request bodies that could not be decoded.
var errMalformed = errors.New("decode request")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnknownPlan), errors.Is(err, core.ErrRunNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidPlan), errors.Is(err, errMalformed), errors.Is(err, table.ErrRaggedRow):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDocumentTooLarge), errors.Is(err, core.ErrTableTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyApplies):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrPlanStoreDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its user-facing form with status.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	ue := core.NewUserError(err)
	msg := ue.User

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
		Details: errorDetails(ue, status),
	})
}

// errorDetails returns what a client can act on: the step problems of a
// rejected plan, or the error text. Server errors and errors outside the
// catalogue return nil.
func errorDetails(ue *core.UserError, status int) []string {
	if status >= http.StatusInternalServerError || !core.IsUserFacing(ue.Technical) {
		return nil
	}
	if problems := core.Problems(ue.Technical); len(problems) > 0 {
		return problems
	}
	return []string{ue.Technical.Error()}
}

// respondServiceError writes err with the status statusFor picks.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}
