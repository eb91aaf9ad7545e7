package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies a failure into the closed set the API boundary maps to
// transport status codes.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindUpstreamUnavailable
	KindInvalidUpstreamResponse
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindUpstreamUnavailable:
		return "upstream unavailable"
	case KindInvalidUpstreamResponse:
		return "invalid upstream response"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error attaches a Kind to an ordinary wrapped error chain. The kind
// survives further fmt.Errorf("...: %w", err) wrapping.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

// New creates a leaf error of the given kind.
func New(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a kind and context. Wrapping nil yields nil.
func Wrap(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the kind of the outermost classified error in err's
// chain, or KindUnknown when the chain carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
