// Package errs defines the error taxonomy shared across components.
//
// Callers branch on category with errors.Is/errors.As, never on message
// substrings, except the watchdog's ERROR_INSTRUCTIONS table which is
// inherently a human-readable lookup (see internal/supervisor/watchdog.go).
package errs

import "errors"

// Category is one of the taxonomy buckets from SPEC_FULL §7.
type Category int

const (
	// TransientExternal covers LLM timeouts, network blips, upstream
	// reconnects. Retried with bounded backoff by the caller.
	TransientExternal Category = iota
	// ValidationError covers bad judge JSON or a malformed tool argument.
	ValidationError
	// StoreConflict covers a duplicate unique key; swallowed as idempotence.
	StoreConflict
	// Unauthorized covers missing credentials or an expired session.
	Unauthorized
	// SupervisorTransient covers an Ingest listener crash under the
	// resilient restart wrapper.
	SupervisorTransient
)

func (c Category) String() string {
	switch c {
	case TransientExternal:
		return "transient_external"
	case ValidationError:
		return "validation_error"
	case StoreConflict:
		return "store_conflict"
	case Unauthorized:
		return "unauthorized"
	case SupervisorTransient:
		return "supervisor_transient"
	default:
		return "unknown"
	}
}

// Error is a categorized, wrappable error.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a categorized error.
func New(cat Category, msg string) *Error {
	return &Error{Category: cat, Message: msg}
}

// Wrap builds a categorized error wrapping err.
func Wrap(cat Category, msg string, err error) *Error {
	return &Error{Category: cat, Message: msg, Err: err}
}

// Is reports whether err (or any error it wraps) belongs to cat.
func Is(err error, cat Category) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Category == cat
	}
	return false
}
