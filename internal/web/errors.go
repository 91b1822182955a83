package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusFor(err))
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is written as JSON

import (
	"context"
	"errors"
	"net/http"

	"github.com/JonMunkholm/supportlog/internal/core"
	"github.com/JonMunkholm/supportlog/internal/logging"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errInvalidID   = errors.New("invalid id")
	errNotObject   = errors.New("request body must be a json object")
	errBadParam    = errors.New("invalid query parameter")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error     string             `json:"error"`
	Message   string             `json:"message"`
	Action    string             `json:"action,omitempty"`
	Code      string             `json:"code"`
	Fields    []FieldError       `json:"fields,omitempty"`
	Report    *core.ImportReport `json:"report,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
}

// FieldError is one failing field of a rejected record.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var verrs core.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnsupportedFormat),
		errors.Is(err, core.ErrEmptyInput),
		errors.Is(err, core.ErrMissingHeader),
		errors.Is(err, core.ErrMalformedInput),
		errors.Is(err, core.ErrNotArray),
		errors.Is(err, errInvalidID),
		errors.Is(err, errNotObject),
		errors.Is(err, errBadParam):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports),
		errors.Is(err, core.ErrImportCancelled),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs the technical error server-side and writes a JSON body
// carrying the user-facing message.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	respondErrorReport(w, r, err, statusCode, nil)
}

// respondErrorReport is respondError for imports that stopped part way; the
// partial report goes back to the client alongside the error.
func respondErrorReport(w http.ResponseWriter, r *http.Request, err error, statusCode int, report *core.ImportReport) {
	userMsg := core.MapError(err)
	requestID := middleware.GetReqID(r.Context())

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	resp := ErrorResponse{
		Error:     err.Error(),
		Message:   userMsg.Message,
		Action:    userMsg.Action,
		Code:      userMsg.Code,
		Report:    report,
		RequestID: requestID,
	}
	if statusCode >= http.StatusInternalServerError {
		// Internal details stay in the log.
		resp.Error = userMsg.Message
	}

	var verrs core.ValidationErrors
	if errors.As(err, &verrs) {
		for _, ve := range verrs {
			resp.Fields = append(resp.Fields, FieldError{Field: ve.Field, Message: ve.Message})
		}
	}

	if statusCode == http.StatusServiceUnavailable && errors.Is(err, core.ErrTooManyImports) {
		w.Header().Set("Retry-After", "10")
	}
	writeJSON(w, r, statusCode, resp)
}
