// Package corralerr names the error kinds the daemon's operations map their
// failures onto, independent of any particular exception hierarchy, per the
// error-handling design.
package corralerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for RPC status mapping.
type Kind int

const (
	// Internal is the zero value: an unexpected fault from a collaborator.
	Internal Kind = iota
	NotFound
	AlreadyExists
	InvalidArgument
	FailedPrecondition
	Aborted
	Unimplemented
	// ResourceExhausted is named explicitly by the MAC allocator design for
	// exhausting its generation retry budget; it does not appear among the
	// seven general-purpose kinds otherwise enumerated by the error model.
	ResourceExhausted
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not-found"
	case AlreadyExists:
		return "already-exists"
	case InvalidArgument:
		return "invalid-argument"
	case FailedPrecondition:
		return "failed-precondition"
	case Aborted:
		return "aborted"
	case Unimplemented:
		return "unimplemented"
	case ResourceExhausted:
		return "resource-exhausted"
	default:
		return "internal"
	}
}

// Error is a kind-tagged error. Collaborator faults that are not already an
// *Error are wrapped as Internal by the top-level RPC entry points.
type Error struct {
	Kind    Kind
	Message string
	// Code is an optional machine-readable sub-code, e.g. "INVALID_MEM_SIZE".
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error of the given kind with no sub-code.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Coded attaches a machine-readable sub-code, e.g. INVALID_MEM_SIZE.
func Coded(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap tags an underlying error with kind, preserving it for errors.Is/As.
func Wrap(kind Kind, err error) *Error {
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, else Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
