package hunt

import (
	"errors"
	"fmt"
)

// Kind classifies an error so transports can map it without string matching.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindInvalid
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindForbidden:
		return "forbidden"
	case KindInvalid:
		return "invalid"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// Error is a classified domain error. Two Errors match under errors.Is when
// their kinds agree, so callers can test against the sentinels below.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound    = &Error{Kind: KindNotFound, Message: "not found"}
	ErrForbidden   = &Error{Kind: KindForbidden, Message: "forbidden"}
	ErrInvalid     = &Error{Kind: KindInvalid, Message: "invalid input"}
	ErrConflict    = &Error{Kind: KindConflict, Message: "conflict"}
	ErrUnavailable = &Error{Kind: KindUnavailable, Message: "unavailable"}
)

func NotFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }
func Forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }
func Invalid(msg string) error { return &Error{Kind: KindInvalid, Message: msg} }
func Conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }
func Unavailable(msg string, cause error) error {
	return &Error{Kind: KindUnavailable, Message: msg, Cause: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
