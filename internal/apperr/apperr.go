// Package apperr carries the error taxonomy shared by the service and
// transport layers. Services return *Error with a machine-checkable
// Kind; the HTTP layer maps kinds to status codes in one place.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// KindInternal covers store and infrastructure failures. It is the
	// zero value: an error that carries no explicit kind is internal.
	KindInternal Kind = iota
	// KindValidation is malformed or out-of-range input.
	KindValidation
	// KindNotFound means a referenced entity does not exist.
	KindNotFound
	// KindForbidden means the caller lacks the required relationship
	// to the entity (not the owner, not the requester).
	KindForbidden
	// KindConflict is a state-machine precondition violation: request
	// already processed, ride no longer open, ride expired.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) error   { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) error  { return &Error{Kind: KindForbidden, Message: msg} }
func Conflict(msg string) error   { return &Error{Kind: KindConflict, Message: msg} }

// Internal wraps an unexpected failure, keeping the cause on the chain
// for logging while the caller-facing message stays generic.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// KindOf extracts the kind from anywhere on the error chain.
// Unclassified errors report KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message for classified errors
// and a generic message for everything else, so internal details never
// leak to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
