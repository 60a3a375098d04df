// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing JSON responses
// and maps domain errors onto status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"propman/internal/auth"
	"propman/internal/core"
	"propman/internal/log"
	"propman/internal/reporting"
	"propman/internal/services"
	"propman/internal/store"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
	raw        []byte
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

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the value encoded as the response body.
func (b *JSONResponseBuilder) JSON(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Raw sets a pre-rendered body with its content type.
func (b *JSONResponseBuilder) Raw(contentType string, body []byte) *JSONResponseBuilder {
	b.headers["Content-Type"] = contentType
	b.raw = body
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	var body []byte
	switch {
	case b.raw != nil:
		body = b.raw
	case b.payload != nil:
		encoded, err := json.Marshal(b.payload)
		if err != nil {
			slog.Error("Failed to encode response", "error", err)
			http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
			return
		}
		body = append(encoded, '\n')
		if _, ok := b.headers["Content-Type"]; !ok {
			b.headers["Content-Type"] = "application/json; charset=utf-8"
		}
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(body) > 0 {
		_, _ = w.Write(body)
	}
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error    string   `json:"error"`
	Code     string   `json:"code,omitempty"`
	Details  []string `json:"details,omitempty"`
	Redirect string   `json:"redirect,omitempty"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(ErrorBody{Error: message})
}

func UnauthorizedError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// errBadRequest marks malformed input that never reached the domain.
var errBadRequest = errors.New("bad request")

// inputErrors are domain validation failures reported as 422.
var inputErrors = []error{
	core.ErrEmptyPropertyID,
	core.ErrMissingIssueDate,
	core.ErrDueBeforeIssue,
	core.ErrInvalidStatus,
	core.ErrNoLineItems,
	core.ErrInvalidLineItem,
	core.ErrTotalsMismatch,
	core.ErrDescriptionTooLong,
	core.ErrInvalidAmount,
	core.ErrInvalidDate,
	core.ErrEmptyName,
	core.ErrInvalidPropertyStatus,
	core.ErrEmptyDescription,
	core.ErrEmptyCategory,
	core.ErrInvalidGranularity,
	reporting.ErrInvalidRange,
	services.ErrUnknownProperty,
	services.ErrInitialStatus,
}

// authStatus maps identity provider codes onto HTTP statuses.
var authStatus = map[auth.Code]int{
	auth.CodeUserNotFound:      http.StatusUnauthorized,
	auth.CodeWrongPassword:     http.StatusUnauthorized,
	auth.CodeInvalidToken:      http.StatusUnauthorized,
	auth.CodeInvalidEmail:      http.StatusUnprocessableEntity,
	auth.CodeWeakPassword:      http.StatusUnprocessableEntity,
	auth.CodeEmailAlreadyInUse: http.StatusConflict,
	auth.CodeNetworkFailed:     http.StatusBadGateway,
	auth.CodeUnknown:           http.StatusBadGateway,
}

// ErrorFor maps err onto a status code and body. Identity errors carry their
// user-facing message; internal failures never leak their text.
func ErrorFor(err error) (int, ErrorBody) {
	var ve *auth.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, ErrorBody{Error: "validation failed", Details: ve.Messages}
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		details := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			details = append(details, fieldProblem(fe))
		}
		return http.StatusUnprocessableEntity, ErrorBody{Error: "validation failed", Details: details}
	}
	var ae *auth.Error
	if errors.As(err, &ae) {
		status, ok := authStatus[ae.Code]
		if !ok {
			status = http.StatusBadGateway
		}
		return status, ErrorBody{Error: auth.UserMessage(err), Code: string(ae.Code)}
	}

	switch {
	case errors.Is(err, auth.ErrProfileMissing):
		return http.StatusUnauthorized, ErrorBody{Error: auth.UserMessage(err), Redirect: auth.RouteLogin}
	case errors.Is(err, auth.ErrAdminSignupDisabled):
		return http.StatusForbidden, ErrorBody{Error: auth.UserMessage(err)}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, ErrorBody{Error: "forbidden"}
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, ErrorBody{Error: "not found"}
	case errors.Is(err, store.ErrConflict), errors.Is(err, core.ErrInvalidTransition):
		return http.StatusConflict, ErrorBody{Error: err.Error()}
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, ErrorBody{Error: err.Error()}
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrorBody{Error: "upstream timeout"}
	}
	for _, target := range inputErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity, ErrorBody{Error: err.Error()}
		}
	}
	return http.StatusInternalServerError, ErrorBody{Error: "internal error"}
}

func fieldProblem(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		return fe.Field() + " is too long"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	}
	return fe.Field() + " is invalid"
}

// writeError logs err at a level matching its status and writes the mapped response.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	status, body := ErrorFor(err)
	logger := log.FromContext(ctx)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", log.FieldStatusCode, status, log.FieldError, err)
	} else {
		logger.DebugContext(ctx, "Request rejected", log.FieldStatusCode, status, log.FieldError, err)
	}
	NewJSONResponse().Status(status).JSON(body).Write(w)
}
