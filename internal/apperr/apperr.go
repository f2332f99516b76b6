package apperr

import (
	"errors"
	"fmt"
)

// Code classifies an error so the transport layer can map it to a
// response without inspecting messages.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeForbidden         Code = "FORBIDDEN"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeConflict          Code = "CONFLICT"
	CodeInternal          Code = "INTERNAL"
)

type Error struct {
	Code  Code
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Msg, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, msg string, cause error) *Error {
	return &Error{Code: code, Msg: msg, Cause: cause}
}

// CodeOf returns the code carried by err, or CodeInternal for
// anything that is not an *Error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Message returns the user-facing message: the Msg of an *Error, or a
// generic one for unclassified errors so internals never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "internal error"
}

func Is(err error, code Code) bool { return CodeOf(err) == code }
