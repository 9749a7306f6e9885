package domain

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates malformed or missing input. Fields lists the
// offending field names for client-side display.
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Fields, ", ")
}

// ConflictError indicates a lifecycle invariant violation, e.g. a create
// for a patient that already has a live record.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// StoreUnavailableError indicates the durable medium could not be written.
// The failed append leaves the ledger unchanged, so the caller may retry.
type StoreUnavailableError struct {
	Message string
	Err     error
}

func (e *StoreUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// ChainIntegrityError indicates detected tampering in the hash chain.
// It is raised only by chain verification and never silently repaired.
type ChainIntegrityError struct {
	SequenceID int64
	Message    string
}

func (e *ChainIntegrityError) Error() string {
	return fmt.Sprintf("chain integrity broken at entry %d: %s", e.SequenceID, e.Message)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError naming the offending fields.
func ErrValidation(message string, fields ...string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrStoreUnavailable wraps a low-level storage failure.
func ErrStoreUnavailable(err error, format string, args ...interface{}) *StoreUnavailableError {
	return &StoreUnavailableError{Message: fmt.Sprintf(format, args...), Err: err}
}
