package domain

import "errors"

// Error kinds surfaced by entities and handlers. Callers match them with
// errors.Is; the wrapped message carries the specifics.
var (
	ErrValidation   = errors.New("validation failed")
	ErrInvalidState = errors.New("invalid state")
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrConflict     = errors.New("already exists")
	ErrPersistence  = errors.New("persistence failure")
	ErrPublish      = errors.New("event publish failed")
)

// Stable error codes for presentation adapters.
const (
	CodeInvalidInput = "INVALID_INPUT"
	CodeInvalidState = "INVALID_STATE"
	CodeNotFound     = "NOT_FOUND"
	CodeForbidden    = "FORBIDDEN"
	CodeConflict     = "CONFLICT"
	CodeDatabase     = "DATABASE_ERROR"
	CodePublish      = "PUBLISH_FAILED"
	CodeInternal     = "INTERNAL_ERROR"
)

// Code classifies err into one of the stable error codes. Unknown errors
// map to CodeInternal; a nil error maps to "".
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return CodeInvalidInput
	case errors.Is(err, ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrUnauthorized):
		return CodeForbidden
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrPersistence):
		return CodeDatabase
	case errors.Is(err, ErrPublish):
		return CodePublish
	default:
		return CodeInternal
	}
}
