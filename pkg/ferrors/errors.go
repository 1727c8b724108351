// Package ferrors defines the coded error kinds shared across formstudio.
//
// Every package that crosses a user-visible boundary (the placement resolver,
// the REST API, the generator, import/export) reports failures as an *Error
// carrying one of the codes below, so callers can decide between a no-op with
// a notification, an HTTP status, or an informational "aborted" state without
// string matching.
//
//	err := ferrors.New(ferrors.CodeInvalidTarget, "node %s not found", id)
//	if ferrors.Is(err, ferrors.CodeInvalidTarget) {
//	    // leave the tree unchanged
//	}
package ferrors

import (
	"context"
	"errors"
	"fmt"
)

// Code is a machine-readable error kind.
type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeInvalidTarget      Code = "INVALID_TARGET"
	CodeUnsupportedNesting Code = "UNSUPPORTED_NESTING"
	CodeNetwork            Code = "NETWORK_ERROR"
	CodeParse              Code = "PARSE_ERROR"
	CodeAborted            Code = "ABORTED"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Error is a structured error with a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates an Error around an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether the outermost *Error in err's chain has the given code.
func Is(err error, code Code) bool {
	return GetCode(err) == code
}

// GetCode extracts the code of the outermost *Error in the chain, or "".
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns the message without the code prefix. Coded causes
// are appended; other causes are internal detail and left out.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	var inner *Error
	if e.Cause != nil && errors.As(e.Cause, &inner) {
		return e.Message + ": " + UserMessage(inner)
	}
	return e.Message
}

// IsAborted reports whether err represents a user-cancelled request, either
// coded as CodeAborted or a bare context cancellation.
func IsAborted(err error) bool {
	if err == nil {
		return false
	}
	return Is(err, CodeAborted) || errors.Is(err, context.Canceled)
}
