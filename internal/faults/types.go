// Package faults defines the error categories shared by the pull and push
// pipelines.
package faults

import (
	"errors"
	"fmt"
)

type ErrorCategory string

const (
	// ValidationError marks a local document that is malformed, has the
	// wrong type for a field, or lacks a required field.
	ValidationError ErrorCategory = "ValidationError"
	// NotFoundError marks a remote resource or selector that matched nothing.
	NotFoundError ErrorCategory = "NotFoundError"
	// TransportError marks a network, auth or remote API failure.
	TransportError ErrorCategory = "TransportError"
	// IntegrityError marks local state that disagrees with remote state in a
	// way that would corrupt one side if the operation continued.
	IntegrityError ErrorCategory = "IntegrityError"
)

type TypedError struct {
	Category ErrorCategory
	// Field names the offending header field for validation errors.
	Field   string
	Message string
	Cause   error
}

func (e *TypedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if e.Field != "" {
		if msg == "" {
			msg = e.Field
		} else {
			msg = e.Field + ": " + msg
		}
	}
	if msg != "" && e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	if msg != "" {
		return msg
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return string(e.Category)
}

func (e *TypedError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewTypedError(category ErrorCategory, message string, cause error) *TypedError {
	return &TypedError{
		Category: category,
		Message:  message,
		Cause:    cause,
	}
}

// Invalid returns a ValidationError for the named field.
func Invalid(field, format string, args ...any) *TypedError {
	return &TypedError{
		Category: ValidationError,
		Field:    field,
		Message:  fmt.Sprintf(format, args...),
	}
}

// NotFound returns a NotFoundError.
func NotFound(format string, args ...any) *TypedError {
	return NewTypedError(NotFoundError, fmt.Sprintf(format, args...), nil)
}

// Transport wraps cause as a TransportError.
func Transport(message string, cause error) *TypedError {
	return NewTypedError(TransportError, message, cause)
}

// Integrity returns an IntegrityError.
func Integrity(message string, cause error) *TypedError {
	return NewTypedError(IntegrityError, message, cause)
}

func IsCategory(err error, category ErrorCategory) bool {
	if err == nil {
		return false
	}

	var typedErr *TypedError
	if !errors.As(err, &typedErr) {
		return false
	}
	return typedErr.Category == category
}

// CategoryOf returns the category of the outermost TypedError in err's chain.
func CategoryOf(err error) (ErrorCategory, bool) {
	var typedErr *TypedError
	if err == nil || !errors.As(err, &typedErr) {
		return "", false
	}
	return typedErr.Category, true
}
