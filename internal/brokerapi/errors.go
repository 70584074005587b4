package brokerapi

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of error kinds surfaced to clients (spec §7).
type ErrorKind string

const (
	ErrNotFound            ErrorKind = "NotFound"
	ErrStaleId             ErrorKind = "StaleId"
	ErrInvalidArguments    ErrorKind = "InvalidArguments"
	ErrBadQuery            ErrorKind = "BadQuery"
	ErrPolicyViolation     ErrorKind = "PolicyViolation"
	ErrConsentRequired     ErrorKind = "ConsentRequired"
	ErrPeerGone            ErrorKind = "PeerGone"
	ErrTimeout             ErrorKind = "Timeout"
	ErrExecFailed          ErrorKind = "ExecFailed"
	ErrSandboxUnavailable  ErrorKind = "SandboxUnavailable"
	ErrConflict            ErrorKind = "Conflict"
	ErrPersistenceError    ErrorKind = "PersistenceError"
	ErrProtocolError       ErrorKind = "ProtocolError"
	ErrBusy                ErrorKind = "Busy" // subkind of PeerGone, §9
)

// Error is the typed error every public broker operation returns instead of
// a bare fmt.Errorf, so callers can switch on Kind.
type Error struct {
	Kind    ErrorKind
	Message string
	// Field points at the offending JSON-pointer-ish path for
	// InvalidArguments.
	Field string
	// Err wraps the underlying cause, if any, for %w unwrapping.
	Err error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field: %s)", e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a broker error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs a broker error of the given kind, wrapping cause.
func Wrap(kind ErrorKind, cause error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// WithField attaches a JSON-pointer-style field path (used by
// InvalidArguments).
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// KindOf extracts the ErrorKind from err if it (or something it wraps) is a
// *Error; the zero value otherwise.
func KindOf(err error) (ErrorKind, bool) {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind, true
	}
	return "", false
}
