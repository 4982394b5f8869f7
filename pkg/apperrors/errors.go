package apperrors

import (
	"errors"
	"fmt"
)

// Kinds of failure surfaced by the store-backed operations. Every error returned by the
// pool manager, repositories and services matches exactly one of these with errors.Is.
var (
	ErrConnection = errors.New("store unavailable")
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrStoreQuery = errors.New("store query failed")
)

// Error attaches a failure kind and the operation that produced it to an underlying cause.
type Error struct {
	Kind    error
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Error()
	}
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, msg, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the cause so errors.Is/As see through the wrapper.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Connection marks err as a failure to reach or establish the store.
func Connection(op string, err error) error {
	return &Error{Kind: ErrConnection, Op: op, Err: err}
}

// Query marks err as a store-side failure other than connectivity.
func Query(op string, err error) error {
	return &Error{Kind: ErrStoreQuery, Op: op, Err: err}
}

// NotFound reports that the entity addressed by op does not exist.
func NotFound(op, message string) error {
	return &Error{Kind: ErrNotFound, Op: op, Message: message}
}

// Validation reports malformed or missing input.
func Validation(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

// Validationf is Validation with formatting.
func Validationf(format string, args ...any) error {
	return Validation(fmt.Sprintf(format, args...))
}

// KindOf returns the failure kind of err, or nil if err carries none.
// Connection wins over query when both are present (a query that lost its connection).
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConnection, ErrStoreQuery} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// IsClassified reports whether err already carries a failure kind.
func IsClassified(err error) bool {
	return KindOf(err) != nil
}
