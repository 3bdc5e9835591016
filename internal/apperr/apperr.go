// Package apperr is the error taxonomy shared by services, middleware and
// handlers. Every failure that reaches an HTTP response is classified into
// exactly one Kind.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindTokenExpired       Kind = "TOKEN_EXPIRED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindValidationFailed   Kind = "VALIDATION_FAILED"
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindInternal           Kind = "INTERNAL"
)

// HTTPStatus maps a kind to its response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated, KindTokenExpired:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidationFailed:
		return http.StatusBadRequest
	case KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is one per-field validation message.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. The message is what the caller sees; err is only
// logged.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Unauthenticated(message string) *Error { return New(KindUnauthenticated, message) }
func TokenExpired() *Error                  { return New(KindTokenExpired, "token expired") }
func Forbidden(message string) *Error       { return New(KindForbidden, message) }
func NotFound(message string) *Error        { return New(KindNotFound, message) }
func Conflict(message string) *Error        { return New(KindConflict, message) }

func ServiceUnavailable(message string) *Error {
	return New(KindServiceUnavailable, message)
}

func RateLimited(message string) *Error {
	return New(KindRateLimited, message)
}

func Internal(err error) *Error {
	return Wrap(KindInternal, err, "internal server error")
}

// Validation builds a VALIDATION_FAILED error from field messages.
func Validation(fields ...FieldError) *Error {
	return &Error{Kind: KindValidationFailed, Message: "validation failed", Fields: fields}
}

// Field is shorthand for a single field message.
func Field(field, message string) FieldError {
	return FieldError{Field: field, Message: message}
}

// KindOf reports the kind of err. Unclassified errors are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// As returns err as an *Error, classifying unknown errors as Internal.
func As(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
