package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for validation and usage failures.
var (
	// ErrMissingFrom indicates the sender address is absent or empty.
	ErrMissingFrom = errors.New("missing from")

	// ErrMissingTo indicates the recipient list is absent or empty.
	ErrMissingTo = errors.New("missing to")

	// ErrInvalidAddress indicates an address failed syntactic validation.
	ErrInvalidAddress = errors.New("invalid email address")

	// ErrInvalidType indicates a field holds a value of the wrong type.
	ErrInvalidType = errors.New("invalid field type")

	// ErrMissingEmail indicates a send was attempted without an email.
	ErrMissingEmail = errors.New("missing email")

	// ErrMissingProviders indicates a strategy was built without a primary
	// and/or backup provider.
	ErrMissingProviders = errors.New("missing primary and/or backup provider(s)")
)

// ValidationError represents a validation error with specific field information.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string

	// Message is the validation error message.
	Message string

	// Value is the invalid value (optional).
	Value interface{}

	// Err is the sentinel classifying the failure (optional).
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error in %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Unwrap returns the classifying sentinel.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// FailureKind classifies a failed delivery.
type FailureKind int

const (
	// FailureUserAttention means the provider rejected the payload (4xx).
	// It is never retried on another provider.
	FailureUserAttention FailureKind = iota + 1

	// FailureTransport means both providers failed at the infrastructure
	// level (5xx, timeout, connection error).
	FailureTransport
)

// String returns the string representation of the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailureUserAttention:
		return "user_attention"
	case FailureTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// DeliveryError is the terminal failure outcome of a send. It carries the
// upstream detail verbatim so callers can relay it.
type DeliveryError struct {
	// Kind classifies the failure.
	Kind FailureKind

	// StatusCode is the status to report to the caller.
	StatusCode int

	// Message is a fixed, human readable summary.
	Message string

	// UpstreamStatus is the status returned by the last provider tried,
	// or 500 when it returned none.
	UpstreamStatus int

	// UpstreamBody is the body returned by the last provider tried, or the
	// transport error text when it returned none.
	UpstreamBody string

	// Provider is the name of the last provider tried.
	Provider string

	// Cause is the transport error, if any.
	Cause error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s (provider: %s, status: %d)", e.Message, e.Provider, e.StatusCode)
}

// Unwrap returns the underlying transport error, if any.
func (e *DeliveryError) Unwrap() error {
	return e.Cause
}

// IsUserAttention reports whether err is a DeliveryError caused by the payload.
func IsUserAttention(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Kind == FailureUserAttention
}

// IsTransport reports whether err is a DeliveryError caused by both
// providers failing.
func IsTransport(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de) && de.Kind == FailureTransport
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewValidationErrorWithValue creates a new validation error with a value.
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

func newInvalidAddressError(field, address string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "invalid email " + address,
		Value:   address,
		Err:     ErrInvalidAddress,
	}
}

func newInvalidTypeError(field string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("%s must be a string, got %T", field, value),
		Err:     ErrInvalidType,
	}
}
