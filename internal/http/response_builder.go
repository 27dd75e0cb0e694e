// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and the
// mapping from domain errors to status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/amortization"
	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/log"
)

// errBadRequest marks malformed input: unreadable JSON, bad query values.
var errBadRequest = errors.New("bad request")

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", log.FieldError, err)
	}
}

// ErrorBody is the JSON shape of every error response. Fields is set for
// validation failures only.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// ErrorResponse creates an error response with the given message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(ErrorBody{Error: message})
}

// writeJSON writes v with status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	NewJSONResponse().Status(code).Body(v).Write(w)
}

// writeError maps err to a status code. Unexpected errors are logged and
// answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve core.ValidationErrors
	var single core.ValidationError
	switch {
	case errors.As(err, &ve):
		fields := make(map[string]string, len(ve))
		for _, e := range ve {
			fields[e.Field] = e.Err.Error()
		}
		NewJSONResponse().Status(http.StatusUnprocessableEntity).
			Body(ErrorBody{Error: "validation failed", Fields: fields}).Write(w)
	case errors.As(err, &single):
		NewJSONResponse().Status(http.StatusUnprocessableEntity).
			Body(ErrorBody{Error: "validation failed", Fields: map[string]string{single.Field: single.Err.Error()}}).Write(w)
	case errors.Is(err, core.ErrNotFound):
		ErrorResponse(http.StatusNotFound, "not found").Write(w)
	case errors.Is(err, errBadRequest):
		ErrorResponse(http.StatusBadRequest, err.Error()).Write(w)
	case errors.Is(err, amortization.ErrInvalidArgument),
		errors.Is(err, core.ErrNothingToPay),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate):
		ErrorResponse(http.StatusUnprocessableEntity, err.Error()).Write(w)
	case errors.Is(err, core.ErrEmailTaken):
		ErrorResponse(http.StatusConflict, err.Error()).Write(w)
	case errors.Is(err, core.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		ErrorResponse(http.StatusUnauthorized, err.Error()).Write(w)
	default:
		log.FromContext(r.Context()).LogError(r.Context(), "Request failed", err, r.Pattern)
		ErrorResponse(http.StatusInternalServerError, "internal error").Write(w)
	}
}

// rejectForbidden answers cross-origin writes.
func rejectForbidden(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusForbidden, "cross-origin request rejected").Write(w)
}

// rejectRateLimited answers requests over the per-client limit.
func rejectRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}
