// Package domainerrors provides coded errors for domain and service layers.
// Each external boundary translates its failures into one of the closed set
// of codes below, so call sites can branch exhaustively on HasCode instead of
// matching error strings.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies an error for callers and transports.
type Code string

const (
	CodeInternal     Code = "internal"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeUnavailable  Code = "unavailable"
	CodeTimeout      Code = "timeout"

	// CodeNotSubmitted marks operations that require a prior successful
	// network submission (e.g. status queries on an unsubmitted transaction).
	CodeNotSubmitted Code = "not_submitted"

	// CodeGeneration marks artifact generation failures: nothing was spent,
	// nothing was written, the attempt can simply be re-run.
	CodeGeneration Code = "generation_failed"

	// CodePublish marks publish pipeline failures after generation succeeded.
	CodePublish Code = "publish_failed"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error without a cause.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error. A nil err returns
// nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, Err: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		return HasCode(e.Err, code)
	}
	return false
}

// CodeOf returns the outermost code in the chain, or CodeInternal when the
// error carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
