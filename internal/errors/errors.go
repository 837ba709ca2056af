// Package errors provides error handling utilities.
package errors

import (
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeConfig indicates a configuration error; it aborts the run
	// before any resource is processed
	TypeConfig Type = "CONFIG_ERROR"

	// TypeUnknownTier indicates a tier name absent from the catalog;
	// it isolates to a single resource
	TypeUnknownTier Type = "UNKNOWN_TIER"

	// TypeObservation indicates metrics could not be retrieved for a
	// resource; callers degrade to zero utilization, not a hard failure
	TypeObservation Type = "OBSERVATION_ERROR"

	// TypeMutation indicates the apply step was rejected for a resource
	TypeMutation Type = "MUTATION_ERROR"

	// TypeProtectedInvariant indicates a non-Keep plan was built for a
	// protected resource; this is a logic bug, never recoverable
	TypeProtectedInvariant Type = "PROTECTED_INVARIANT"

	// TypeEnumeration indicates the resource enumerator failed
	TypeEnumeration Type = "ENUMERATION_ERROR"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`

	// Transient marks errors worth retrying (throttling, conflicts)
	Transient bool `json:"transient,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// HasType checks if the error is of a specific type
func (e *Error) HasType(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// AsTransient marks the error as retryable
func (e *Error) AsTransient() *Error {
	e.Transient = true
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, t Type) bool {
	if e, ok := err.(*Error); ok {
		return e.Type == t
	}
	return false
}

// IsTransient reports whether an error is worth retrying
func IsTransient(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Transient
	}
	return false
}

// Config creates a configuration error
func Config(message string) *Error {
	return New(TypeConfig, message)
}

// Configf creates a formatted configuration error
func Configf(format string, args ...interface{}) *Error {
	return Newf(TypeConfig, format, args...)
}

// UnknownTier creates an unknown tier error for a resource
func UnknownTier(tierName, resource string) *Error {
	return Newf(TypeUnknownTier, "tier %q not present in catalog", tierName).
		WithContext("resource", resource)
}

// Observation creates an observation error
func Observation(resource string, cause error) *Error {
	return Wrapf(TypeObservation, cause, "metrics unavailable for %s", resource)
}

// Mutation creates a mutation error
func Mutation(resource string, cause error) *Error {
	return Wrapf(TypeMutation, cause, "tier change rejected for %s", resource)
}

// ProtectedInvariant creates a protected invariant violation
func ProtectedInvariant(resource string) *Error {
	return Newf(TypeProtectedInvariant, "non-Keep plan built for protected resource %s", resource)
}

// Enumeration creates an enumeration error
func Enumeration(cause error) *Error {
	return Wrap(TypeEnumeration, "resource enumeration failed", cause)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
