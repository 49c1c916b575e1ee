// Package clustererr is the typed-error taxonomy for the merge loop (§7):
// a small Kind enum wrapped in a package error type, so callers can tell
// an unparsable input row apart from a violated invariant with
// errors.As instead of string matching.
package clustererr

import "fmt"

// Kind classifies why an operation failed.
type Kind int

const (
	// InputFormat covers an unparsable row or a missing field during
	// ingest.
	InputFormat Kind = iota
	// IO covers a read or write failure against a file, database, or
	// cache backend.
	IO
	// Invariant covers a violated structural guarantee: a nil member
	// list, a reference to a dead region, a negative best-potential.
	Invariant
	// Numeric covers a NaN or negative computed potential, which signals
	// a bad coordinate or weight rather than a bug in the loop itself.
	Numeric
)

func (k Kind) String() string {
	switch k {
	case InputFormat:
		return "InputFormat"
	case IO:
		return "IO"
	case Invariant:
		return "Invariant"
	case Numeric:
		return "Numeric"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type every package in this module returns
// for a classified failure.
type Error struct {
	Kind    Kind
	Op      string
	Line    int // 1-based source line, 0 if not applicable
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: %s (line %d): %s", e.Kind, e.Op, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error with no wrapped cause.
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf is New with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WithLine attaches a 1-based source line number for an ingest error.
func WithLine(kind Kind, op string, line int, message string) *Error {
	return &Error{Kind: kind, Op: op, Line: line, Message: message}
}

// Wrap classifies an existing error under a kind, preserving it for
// errors.Unwrap / errors.Is chains.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Message: err.Error(), Err: err}
}
