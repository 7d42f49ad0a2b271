package service

import (
	"errors"
	"fmt"

	"github.com/holocrononline/holocron/validator"
)

// Kind classifies the failures callers have to tell apart.
type Kind int

const (
	KindInternal Kind = iota
	KindUnauthenticated
	KindInvalidArgument
	KindConflict
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidArgument:
		return "invalid argument"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not found"
	}
	return "internal"
}

// Error is the error returned by the services. Message is safe to show to
// the caller; Err holds the underlying cause and is for logs only.
type Error struct {
	Kind       Kind
	Message    string
	Violations []validator.ValidationError
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict)
// holds for every conflict regardless of its message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrInternal        = &Error{Kind: KindInternal}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrNotFound        = &Error{Kind: KindNotFound}
)

// KindOf returns the kind of err. Errors that did not originate in this
// package are internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func internal(op string, err error) error {
	return &Error{Kind: KindInternal, Err: fmt.Errorf("%s: %w", op, err)}
}

func invalid(violations []validator.ValidationError) error {
	return &Error{
		Kind:       KindInvalidArgument,
		Message:    "One or more validation errors occurred.",
		Violations: violations,
	}
}
