// Package errors provides the structured error taxonomy shared by the
// stage engine and the HTTP transport.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an error for transport mapping and logging.
type Kind string

const (
	// KindValidation covers malformed or missing caller input. The
	// application stage is never changed by a validation failure.
	KindValidation Kind = "VALIDATION_ERROR"

	// KindNotFound covers unknown applications or customers. Never
	// retried.
	KindNotFound Kind = "NOT_FOUND"

	// KindDomainRule covers operations that are well-formed but violate
	// a stage-machine rule, e.g. sanctioning a non-approved application.
	KindDomainRule Kind = "DOMAIN_RULE_VIOLATION"

	// KindStorage covers persistence failures surfaced to the caller.
	KindStorage Kind = "STORAGE_ERROR"
)

// Sentinels for errors.Is matching across package boundaries.
var (
	ErrValidation = errors.New(string(KindValidation))
	ErrNotFound   = errors.New(string(KindNotFound))
	ErrDomainRule = errors.New(string(KindDomainRule))
	ErrStorage    = errors.New(string(KindStorage))
)

// Error is a structured application error. Every error in this core is
// surfaced synchronously to the caller; none is retried automatically.
type Error struct {
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, ErrValidation) etc. match wrapped *Error values.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrDomainRule:
		return e.Kind == KindDomainRule
	case ErrStorage:
		return e.Kind == KindStorage
	}
	return false
}

func newError(kind Kind, message, details string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError reports malformed or missing input.
func NewValidationError(message string) *Error {
	return newError(KindValidation, message, "")
}

// NewValidationErrorf reports malformed input with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) *Error {
	return newError(KindValidation, fmt.Sprintf(format, args...), "")
}

// NewNotFoundError reports an unknown resource.
func NewNotFoundError(resource, id string) *Error {
	return newError(KindNotFound, fmt.Sprintf("%s not found", resource), id)
}

// NewDomainRuleError reports a stage-machine rule violation with no
// state change.
func NewDomainRuleError(message string) *Error {
	return newError(KindDomainRule, message, "")
}

// NewStorageError wraps a persistence failure.
func NewStorageError(op string, err error) *Error {
	return newError(KindStorage, fmt.Sprintf("storage operation %s failed", op), err.Error())
}

// KindOf extracts the Kind from err, or KindStorage for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}
