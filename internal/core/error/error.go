package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
)

// AppError wraps an underlying error with an HTTP status, a stable code and
// a message that is safe to show to callers.
type AppError struct {
	Err     error
	Status  int
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information. The code is
// derived from the status.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Code:    codeForStatus(status),
		Message: message,
	}
}

// NewCode creates an AppError carrying an explicit code.
func NewCode(code Code, status int, message string, err error) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Is reports whether the target matches the underlying error or, when the
// target is itself an *AppError, whether both share the same code.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) && t.Code != "" {
		return t.Code == e.Code
	}
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}

// Resolve returns the *AppError in err's chain, wrapping unknown errors as
// an internal server error.
func Resolve(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewCode(CodeGeneric, http.StatusInternalServerError, SystemErrorMessage, err)
}

// StatusOf returns the HTTP status attached to err, 500 when unknown.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return Resolve(err).Status
}

// CodeOf returns the code attached to err.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	return Resolve(err).Code
}

// IsNotFound reports whether err carries one of the not-found codes.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case CodeCEPNotFound, CodeLocalidadeNotFound, CodePrevisaoNotFound:
		return true
	}
	return false
}

// IsTimeout reports whether err is a timeout raised by an upstream call.
func IsTimeout(err error) bool {
	return CodeOf(err) == CodeTimeout
}

func codeForStatus(status int) Code {
	switch {
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return CodeTimeout
	case status == http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	case status >= 500:
		return CodeServerError
	default:
		return CodeGeneric
	}
}
