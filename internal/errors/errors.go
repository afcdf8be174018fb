package errors

import "fmt"

// Kind represents the type of error
type Kind int

const (
	ErrInternal Kind = iota
	ErrNotFound
	ErrInvalidInput
	ErrInvalidState
	ErrOutOfWindow
	ErrDuplicate
	ErrIncomplete
	ErrMissingAnswer
	ErrInvalidNominationState
	ErrPermissionDenied
	ErrStorage
)

// Error is an application-level error with a kind for classification
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Constructor functions for common error types

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(msg string) *Error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

func InvalidInputf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(msg string) *Error {
	return &Error{Kind: ErrInvalidState, Message: msg}
}

func InvalidStatef(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

func OutOfWindow(msg string) *Error {
	return &Error{Kind: ErrOutOfWindow, Message: msg}
}

func Duplicate(msg string) *Error {
	return &Error{Kind: ErrDuplicate, Message: msg}
}

func Incomplete(msg string) *Error {
	return &Error{Kind: ErrIncomplete, Message: msg}
}

func Incompletef(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrIncomplete, Message: fmt.Sprintf(format, args...)}
}

func MissingAnswer(msg string) *Error {
	return &Error{Kind: ErrMissingAnswer, Message: msg}
}

func MissingAnswerf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrMissingAnswer, Message: fmt.Sprintf(format, args...)}
}

func InvalidNominationState(msg string) *Error {
	return &Error{Kind: ErrInvalidNominationState, Message: msg}
}

func PermissionDenied(msg string) *Error {
	return &Error{Kind: ErrPermissionDenied, Message: msg}
}

func Storage(msg string, err error) *Error {
	return &Error{Kind: ErrStorage, Message: msg, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: ErrInternal, Message: "internal error", Err: err}
}

// Wrap wraps an error with additional context
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf returns the classification of err, unwrapping as needed.
// Errors that are not application errors classify as ErrInternal.
func KindOf(err error) Kind {
	for e := err; e != nil; {
		if ae, ok := e.(*Error); ok {
			return ae.Kind
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
	return ErrInternal
}

// Is reports whether err classifies as the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}
