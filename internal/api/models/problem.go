package models

import (
	"encoding/json"
	"net/http"
)

// Problem is the JSON error body returned by every endpoint:
// {"error", "detail"?, "errors"?}.
type Problem struct {
	// Status is the HTTP status code. It is not serialized.
	Status int `json:"-"`

	// Error is a short, stable error message, e.g. "internal".
	Error string `json:"error"`

	// Detail is a human-readable explanation specific to this occurrence.
	Detail string `json:"detail,omitempty"`

	// TraceID is the request identifier. It travels in the X-Request-Id
	// header only, so bodies stay exactly {"error": ...}.
	TraceID string `json:"-"`

	// Errors contains structured field validation errors.
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Error messages.
const (
	ErrorInvalidRequest       = "invalid request"
	ErrorInvalidWebhookSecret = "invalid webhook secret"
	ErrorUnauthorized         = "unauthorized"
	ErrorForbidden            = "forbidden"
	ErrorTooManyRequests      = "too many requests"
	ErrorRequestTooLarge      = "request body too large"
	ErrorInternal             = "internal"
)

// NewProblem creates a new Problem with the given parameters.
func NewProblem(status int, message, traceID string) *Problem {
	return &Problem{
		Status:  status,
		Error:   message,
		TraceID: traceID,
	}
}

// WithDetail adds a detail message to the Problem.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithErrors adds field errors to the Problem.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write writes the Problem as JSON to the ResponseWriter.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 Bad Request problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(http.StatusBadRequest, ErrorInvalidRequest, traceID)
	p.Detail = detail
	p.Errors = errors
	return p
}

// NewUnauthorized creates a 401 Unauthorized problem with the given message.
func NewUnauthorized(traceID, message string) *Problem {
	return NewProblem(http.StatusUnauthorized, message, traceID)
}

// NewForbidden creates a 403 Forbidden problem.
func NewForbidden(traceID, detail string) *Problem {
	return NewProblem(http.StatusForbidden, ErrorForbidden, traceID).WithDetail(detail)
}

// NewRequestTooLarge creates a 413 Request Entity Too Large problem.
func NewRequestTooLarge(traceID string) *Problem {
	return NewProblem(http.StatusRequestEntityTooLarge, ErrorRequestTooLarge, traceID)
}

// NewTooManyRequests creates a 429 Too Many Requests problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return NewProblem(http.StatusTooManyRequests, ErrorTooManyRequests, traceID).WithDetail(detail)
}

// NewInternalError creates a 500 Internal Server Error problem. It never
// carries detail so internal failures are not leaked to callers.
func NewInternalError(traceID string) *Problem {
	return NewProblem(http.StatusInternalServerError, ErrorInternal, traceID)
}
