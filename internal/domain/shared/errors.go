package shared

import "errors"

// ErrorKind classifies a domain error for the transport layer
type ErrorKind string

const (
	// KindValidation marks malformed or conflicting input the caller can correct
	KindValidation ErrorKind = "validation"
	// KindNotFound marks an operation targeting a missing entity
	KindNotFound ErrorKind = "not_found"
	// KindReferential marks an operation blocked by related rows (dependents, cycles)
	KindReferential ErrorKind = "referential"
	// KindConflict marks a concurrent modification that could not be resolved
	KindConflict ErrorKind = "conflict"
	// KindInternal marks store or unexpected failures
	KindInternal ErrorKind = "internal"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"-"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets errors.Is match the shared sentinels after wrapping.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewValidationError creates an error for input the caller must correct
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewNotFoundError creates an error for a missing entity
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// NewReferentialError creates an error for operations blocked by related rows
func NewReferentialError(code, message string) *DomainError {
	return &DomainError{Kind: KindReferential, Code: code, Message: message}
}

// NewInternalError creates an error for unexpected failures.
// The message is meant to be safe to show to clients.
func NewInternalError(code, message string) *DomainError {
	return &DomainError{Kind: KindInternal, Code: code, Message: message}
}

// KindOf returns the kind of err, or KindInternal when err is not a DomainError
func KindOf(err error) ErrorKind {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// Common domain errors
var (
	ErrNotFound            = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewValidationError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = &DomainError{Kind: KindConflict, Code: "CONCURRENCY_CONFLICT", Message: "Resource was modified by another process"}
)
