package utils

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks caller mistakes (bad filters, malformed payloads).
// Transports map it to 400 / InvalidArgument.
var ErrInvalidArgument = errors.New("invalid argument")

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// InvalidArgument builds an AppError wrapping ErrInvalidArgument.
func InvalidArgument(op, format string, args ...any) error {
	return &AppError{Op: op, Msg: fmt.Sprintf(format, args...), Err: ErrInvalidArgument}
}

// IsInvalidArgument reports whether err is a caller mistake.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
