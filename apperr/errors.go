/*
errors.go - Centralized error types for the accounting engines

PURPOSE:
  All error types in one place for consistency and discoverability.
  Engine packages wrap these with domain context; the HTTP edge
  translates a Kind to a status code without knowing which engine
  raised it.

USAGE:
  if errors.Is(err, apperr.ErrNotFound) { ... }

SEE ALSO:
  - api/errors.go: translates Kind to HTTP status
*/
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the HTTP edge without leaking engine
// internals across the boundary.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation"
	KindConflict        Kind = "conflict"
	KindForbiddenSystem Kind = "forbidden_system"
	KindUnauthorized    Kind = "unauthorized"
	KindTokenRevoked    Kind = "token_revoked"
	KindImportExpired   Kind = "import_expired"
	KindTransient       Kind = "transient"
)

// =============================================================================
// SENTINEL ERRORS - use with errors.Is()
// =============================================================================

var (
	ErrNotFound            = errors.New("resource not found")
	ErrValidation           = errors.New("validation failed")
	ErrConflict             = errors.New("conflicting state")
	ErrForbiddenSystem      = errors.New("operation forbidden on system resource")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrTokenRevoked         = errors.New("token revoked")
	ErrImportExpired        = errors.New("import session expired or source unavailable")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// =============================================================================
// STRUCTURED ERRORS - carry additional context
// =============================================================================

// Error is the structured error every engine should return for a
// classifiable failure. Plain sentinel errors remain usable with
// errors.Is for callers that only care about the category.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// NotFound builds a KindNotFound error naming the missing resource.
func NotFound(resource, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %s not found", resource, id), Err: ErrNotFound}
}

// Validation builds a KindValidation error.
func Validation(format string, a ...interface{}) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, a...), Err: ErrValidation}
}

// Conflict builds a KindConflict error.
func Conflict(format string, a ...interface{}) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, a...), Err: ErrConflict}
}

// KindOf extracts the Kind from err, defaulting to KindTransient when
// the error was not produced by this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConflict), errors.Is(err, ErrConcurrentModification), errors.Is(err, ErrDuplicateIdempotencyKey):
		return KindConflict
	case errors.Is(err, ErrForbiddenSystem):
		return KindForbiddenSystem
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrTokenRevoked):
		return KindTokenRevoked
	case errors.Is(err, ErrImportExpired):
		return KindImportExpired
	default:
		return KindTransient
	}
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
