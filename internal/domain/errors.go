package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is the stable failure taxonomy reported to callers.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindAccessDenied     ErrorKind = "access_denied"
	KindInvalidState     ErrorKind = "invalid_state"
	KindValidationFailed ErrorKind = "validation_failed"
	KindTransientStore   ErrorKind = "transient_store_failure"
)

// Error pairs an ErrorKind with a message. Lower layers wrap causes via
// Err so callers can still unwrap the original failure.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func AccessDenied(format string, args ...any) error {
	return &Error{Kind: KindAccessDenied, Msg: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) error {
	return &Error{Kind: KindInvalidState, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidationFailed, Msg: fmt.Sprintf(format, args...)}
}

func TransientStore(err error, format string, args ...any) error {
	return &Error{Kind: KindTransientStore, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the taxonomy kind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool { return KindOf(err) == kind }
