// Package ctlerrors provides the control plane's structured error taxonomy:
// every error that crosses a command handler, adapter call, or HTTP
// response boundary is (or wraps) an *Error carrying a Code that maps
// deterministically to an OperationResult status and an HTTP status.
package ctlerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies an error's place in the taxonomy from spec §7.
type Code string

const (
	CodeValidation Code = "VALIDATION"
	CodeNotFound   Code = "NOT_FOUND"
	CodeConflict   Code = "CONFLICT"
	CodeDependency Code = "DEPENDENCY"
	CodeInternal   Code = "INTERNAL"

	// Integration.* sub-kinds, surfaced by the cloud and Service adapters.
	CodeIntegrationTimeout         Code = "INTEGRATION_TIMEOUT"
	CodeIntegrationConnect         Code = "INTEGRATION_CONNECT"
	CodeIntegrationAuth            Code = "INTEGRATION_AUTH"
	CodeIntegrationProtocol        Code = "INTEGRATION_PROTOCOL"
	CodeIntegrationThrottled       Code = "INTEGRATION_THROTTLED"
	CodeIntegrationPermissionDenied Code = "INTEGRATION_PERMISSION_DENIED"
	CodeIntegrationNotFound        Code = "INTEGRATION_NOT_FOUND"
	CodeIntegrationOther           Code = "INTEGRATION_OTHER"
)

// Error is the uniform error type returned by adapters, commands, and the
// storage layer.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// WithDetail attaches a key/value detail and returns the receiver for
// chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an *Error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an *Error that wraps an underlying cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation-kind constructors

func Validation(field, reason string) *Error {
	return New(CodeValidation, "invalid input").
		WithDetail("field", field).WithDetail("reason", reason)
}

func NotFound(resource, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource)).
		WithDetail("resource", resource).WithDetail("id", id)
}

func Conflict(message string) *Error {
	return New(CodeConflict, message)
}

func Dependency(message string, err error) *Error {
	return Wrap(CodeDependency, message, err)
}

func Internal(message string, err error) *Error {
	return Wrap(CodeInternal, message, err)
}

// IsRetryable reports whether the error's code is one the command pipeline
// may retry locally (Timeout/Throttled) up to the adapter's own cap.
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	switch e.Code {
	case CodeIntegrationTimeout, CodeIntegrationThrottled:
		return true
	default:
		return false
	}
}

// As extracts an *Error from an error chain, if present.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// HTTPStatus maps an error's Code to the HTTP status the API layer should
// return; unrecognized or nil errors map to 500.
func HTTPStatus(err error) int {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound, CodeIntegrationNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeIntegrationAuth:
		return http.StatusUnauthorized
	case CodeIntegrationPermissionDenied:
		return http.StatusForbidden
	case CodeIntegrationThrottled:
		return http.StatusTooManyRequests
	case CodeIntegrationTimeout:
		return http.StatusGatewayTimeout
	case CodeDependency, CodeIntegrationConnect, CodeIntegrationProtocol, CodeIntegrationOther:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
