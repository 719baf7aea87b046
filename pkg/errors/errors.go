// Package errors defines the structured error type and the exhaustive
// error code set returned across every public entry point.
package errors

import (
	"errors"
	"fmt"
)

// Code enumerates the exhaustive error set. OK is represented by a nil
// error, never by a zero Code, so Code has no "OK" member.
type Code string

const (
	CodeInvalidParameter   Code = "invalid_parameter"
	CodeInsufficientMemory Code = "insufficient_memory"
	CodeConnectionError    Code = "connection_error"
	CodeNetworkError       Code = "network_error"
	CodeParsingError       Code = "parsing_error"
	CodeTimeoutError       Code = "timeout_error"
	CodeMessageTooLarge    Code = "message_too_large"
	CodeNotFound           Code = "not_found"
	CodeBusy               Code = "busy"
	CodeInternalError      Code = "internal_error"
)

// Error is the structured error value returned by this module. It carries
// enough context to log without the caller needing to parse the message.
type Error struct {
	Code    Code
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func New(code Code, op, message string) *Error {
	return &Error{Code: code, Op: op, Message: message}
}

func Wrap(code Code, op, message string, cause error) *Error {
	return &Error{Code: code, Op: op, Message: message, Cause: cause}
}

func NewInvalidParameter(op, message string) *Error {
	return New(CodeInvalidParameter, op, message)
}

func NewInsufficientMemory(op, message string) *Error {
	return New(CodeInsufficientMemory, op, message)
}

func NewConnectionError(op, message string, cause error) *Error {
	return Wrap(CodeConnectionError, op, message, cause)
}

func NewNetworkError(op, message string, cause error) *Error {
	return Wrap(CodeNetworkError, op, message, cause)
}

func NewParsingError(op, message string) *Error {
	return New(CodeParsingError, op, message)
}

func NewTimeoutError(op, message string) *Error {
	return New(CodeTimeoutError, op, message)
}

func NewMessageTooLarge(op, message string) *Error {
	return New(CodeMessageTooLarge, op, message)
}

func NewNotFound(op, message string) *Error {
	return New(CodeNotFound, op, message)
}

func NewBusy(op, message string) *Error {
	return New(CodeBusy, op, message)
}

func NewInternalError(op, message string) *Error {
	return New(CodeInternalError, op, message)
}

// CodeOf extracts the Code from err, if err is (or wraps) an *Error.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

func IsTimeout(err error) bool {
	return Is(err, CodeTimeoutError)
}

func IsBusy(err error) bool {
	return Is(err, CodeBusy)
}
