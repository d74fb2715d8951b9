// Package errors provides structured errors with stable codes for sheldon.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"
	ErrNotFound     ErrorCode = "NOT_FOUND"
	ErrPermission   ErrorCode = "PERMISSION"

	// Configuration errors (fail fast, before any source is touched)
	ErrConfigLoad      ErrorCode = "CONFIG_LOAD"
	ErrConfigParse     ErrorCode = "CONFIG_PARSE"
	ErrConfigInvalid   ErrorCode = "CONFIG_INVALID"
	ErrTemplateUnknown ErrorCode = "TEMPLATE_UNKNOWN"

	// Source fetch errors (per plugin, isolated)
	ErrFetch        ErrorCode = "FETCH"
	ErrGitClone     ErrorCode = "GIT_CLONE"
	ErrGitCheckout  ErrorCode = "GIT_CHECKOUT"
	ErrGitReference ErrorCode = "GIT_REFERENCE"
	ErrDownload     ErrorCode = "DOWNLOAD"
	ErrLocalSource  ErrorCode = "LOCAL_SOURCE"

	// File matching errors (per plugin, isolated)
	ErrMatchNoFiles ErrorCode = "MATCH_NO_FILES"
	ErrMatchPattern ErrorCode = "MATCH_PATTERN"

	// Template rendering errors (per plugin, isolated)
	ErrTemplateCompile ErrorCode = "TEMPLATE_COMPILE"
	ErrTemplateRender  ErrorCode = "TEMPLATE_RENDER"

	// Lock file errors
	ErrLockRead  ErrorCode = "LOCK_READ"
	ErrLockWrite ErrorCode = "LOCK_WRITE"
	ErrLockHeld  ErrorCode = "LOCK_HELD"
)

// Error represents a structured error with code and details
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface. A wrapped Error carrying the same
// code is rendered without repeating the code prefix.
func (e *Error) Error() string {
	if e.Wrapped == nil {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.chain())
}

// chain renders the message chain without code prefixes until the code
// changes.
func (e *Error) chain() string {
	if e.Wrapped == nil {
		return e.Message
	}
	if inner, ok := e.Wrapped.(*Error); ok && inner.Code == e.Code {
		return e.Message + ": " + inner.chain()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Wrapped)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is interface
func (e *Error) Is(target error) bool {
	var targetErr *Error
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new Error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new Error with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with an Error
func Wrap(err error, code ErrorCode, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error and returns it for chaining
func (e *Error) WithDetail(key string, value interface{}) *Error {
	e.Details[key] = value
	return e
}

// CodeOf returns the error code of err, or ErrUnknown if err carries none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
