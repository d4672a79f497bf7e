// Package apperr defines the stable error codes returned by the spin engine.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error codes
const (
	CodeInvalidRequest = 400
	CodeUnauthorized   = 401
	CodeForbidden      = 403
	CodeNotFound       = 404
	CodeInternal       = 500

	// Spin engine codes (1000+)
	CodeQuotaExceeded         = 1001
	CodeInsufficientFunds     = 1002
	CodeInactiveConfiguration = 1003
	CodePoolExhausted         = 1004
	CodeAlreadyClaimed        = 1005
	CodeSpinsRemaining        = 1006
)

// Sentinels for errors.Is; any AppError with the same code matches.
var (
	ErrInvalidRequest        = New(CodeInvalidRequest, "invalid request")
	ErrNotFound              = New(CodeNotFound, "not found")
	ErrInternal              = New(CodeInternal, "internal error")
	ErrQuotaExceeded         = New(CodeQuotaExceeded, "daily spins exhausted")
	ErrInsufficientFunds     = New(CodeInsufficientFunds, "insufficient points to spin")
	ErrInactiveConfiguration = New(CodeInactiveConfiguration, "spin is not currently active")
	ErrPoolExhausted         = New(CodePoolExhausted, "no lottery tickets left in the pool")
	ErrAlreadyClaimed        = New(CodeAlreadyClaimed, "ticket already claimed")
	ErrSpinsRemaining        = New(CodeSpinsRemaining, "daily spins are still left")
)

// AppError represents a typed failure with a stable code
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message
func Newf(code int, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error into an AppError
func Wrap(err error, code int, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// From extracts the AppError in err's chain, wrapping anything else as internal
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, CodeInternal, "internal error")
}

// IsBusiness reports whether err is a legitimate business outcome rather than a failure
func IsBusiness(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code != CodeInternal
}

// HTTPStatus maps an error code to an HTTP status
func HTTPStatus(code int) int {
	switch code {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeInsufficientFunds:
		return http.StatusPaymentRequired
	case CodeInactiveConfiguration, CodePoolExhausted, CodeAlreadyClaimed, CodeSpinsRemaining:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
