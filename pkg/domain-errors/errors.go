// Package domainerrors provides coded errors used at service and transport
// boundaries. Stores return pkg/sentinel errors; services translate them into
// coded errors so callers (and the HTTP layer) can branch on the code without
// string matching.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error. Callers translate codes into their own
// user-facing messages ("License cannot be modified", "Application already
// submitted").
type Code string

const (
	// CodeValidation marks a malformed process definition at publish time.
	CodeValidation Code = "validation_error"
	// CodeNotFound marks an unknown definition or instance.
	CodeNotFound Code = "not_found"
	// CodeInvalidTransition marks a requested step not reachable from the
	// current step.
	CodeInvalidTransition Code = "invalid_transition"
	// CodeForbidden marks an actor role not permitted on the requested edge.
	CodeForbidden Code = "forbidden"
	// CodeTerminalState marks an operation against a completed or cancelled
	// instance.
	CodeTerminalState Code = "terminal_state"
	// CodeVersionConflict marks a concurrent write collision that survived
	// the engine's bounded retry.
	CodeVersionConflict Code = "version_conflict"
	// CodeDuplicateID marks a Start call reusing an existing instance ID.
	CodeDuplicateID Code = "duplicate_id"
	// CodeNotAutoAdvanceable marks an AutoAdvance call against a step that
	// is not an auto-advancing system action.
	CodeNotAutoAdvanceable Code = "not_auto_advanceable"

	// Transport-level codes.
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets errors.Is match two coded errors by code (and message when the
// target specifies one).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && (t.Message == "" || t.Message == e.Message)
}

// New creates a coded error with a message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a coded error that preserves the underlying cause for
// errors.Is/errors.As chains.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal when err is not coded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
