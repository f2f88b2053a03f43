package apperror

import (
	"errors"
	"net/http"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotFound            Code = "NOT_FOUND"
	CodeForbidden           Code = "FORBIDDEN"
	CodeInvalidTransition   Code = "INVALID_TRANSITION"
	CodeRegistrationNotOpen Code = "REGISTRATION_NOT_OPEN"
	CodeRegistrationClosed  Code = "REGISTRATION_CLOSED"
	CodeAlreadyRegistered   Code = "ALREADY_REGISTERED"
	CodeAlreadyCheckedIn    Code = "ALREADY_CHECKED_IN"
	CodeNotEligible         Code = "NOT_ELIGIBLE"
	CodeCapacityExceeded    Code = "CAPACITY_EXCEEDED"
	CodeEventFull           Code = "EVENT_FULL"
	CodeInvalidInput        Code = "INVALID_INPUT"
	CodeConflict            Code = "CONFLICT"
	CodeUnauthorized        Code = "UNAUTHORIZED"
)

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrNotFound            = &Error{Code: CodeNotFound}
	ErrForbidden           = &Error{Code: CodeForbidden}
	ErrInvalidTransition   = &Error{Code: CodeInvalidTransition}
	ErrRegistrationNotOpen = &Error{Code: CodeRegistrationNotOpen}
	ErrRegistrationClosed  = &Error{Code: CodeRegistrationClosed}
	ErrAlreadyRegistered   = &Error{Code: CodeAlreadyRegistered}
	ErrAlreadyCheckedIn    = &Error{Code: CodeAlreadyCheckedIn}
	ErrNotEligible         = &Error{Code: CodeNotEligible}
	ErrCapacityExceeded    = &Error{Code: CodeCapacityExceeded}
	ErrEventFull           = &Error{Code: CodeEventFull}
	ErrInvalidInput        = &Error{Code: CodeInvalidInput}
	ErrConflict            = &Error{Code: CodeConflict}
	ErrUnauthorized        = &Error{Code: CodeUnauthorized}
)

// Error is the domain error returned by the lifecycle engine.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Human-readable message
	Metadata map[string]string // Offending state, e.g. current status
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error carrying the offending state.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// As extracts the domain error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus maps the code onto a response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeForbidden:
		return http.StatusForbidden
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeInvalidTransition, CodeAlreadyRegistered, CodeAlreadyCheckedIn,
		CodeCapacityExceeded, CodeEventFull, CodeConflict:
		return http.StatusConflict
	case CodeRegistrationNotOpen, CodeRegistrationClosed, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotEligible:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
