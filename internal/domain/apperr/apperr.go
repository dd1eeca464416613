// Package apperr classifies user-facing application errors.
package apperr

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Kind enumerates the classes of application errors surfaced to callers.
type Kind uint8

const (
	// KindUnknown marks internal failures (storage, transport).
	KindUnknown Kind = iota
	// KindConflict is returned when a write would violate a uniqueness rule.
	KindConflict
	// KindNotFound is returned when a referenced record does not exist.
	KindNotFound
	// KindValidation is returned when the request cannot be satisfied as given.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is a classified application error with a user-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// ErrKind implements Classified.
func (e *Error) ErrKind() Kind { return e.Kind }

// Conflict returns a KindConflict error.
func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// NotFound returns a KindNotFound error.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Validation returns a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Classified is implemented by typed domain errors that carry a Kind.
type Classified interface {
	error
	ErrKind() Kind
}

// KindOf returns the Kind of the first classified error in err's chain,
// or KindUnknown.
func KindOf(err error) Kind {
	var c Classified
	if errors.As(err, &c) {
		return c.ErrKind()
	}
	return KindUnknown
}

// Message returns the user-facing message of the first classified error in
// err's chain. Unclassified errors yield a generic message so internal
// details are not leaked.
func Message(err error) string {
	var c Classified
	if errors.As(err, &c) {
		return c.Error()
	}
	return "internal error"
}
