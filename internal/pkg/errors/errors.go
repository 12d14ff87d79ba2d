package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeForbidden          = "FORBIDDEN"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDatabase           = "DATABASE_ERROR"
	ErrCodeBackend            = "BACKEND_ERROR"
	ErrCodeBackendUnreachable = "BACKEND_UNREACHABLE"
	ErrCodeRemoteFunction     = "REMOTE_FUNCTION_ERROR"
	ErrCodeNotConfigured      = "NOT_CONFIGURED"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Retryable reports whether the same request may succeed later without
// changes: the backend was unreachable, the caller was throttled or the
// session was shutting down
func (e *AppError) Retryable() bool {
	switch e.Code {
	case ErrCodeBackendUnreachable, ErrCodeRateLimited, ErrCodeServiceUnavailable:
		return true
	}
	return false
}

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message, http.StatusUnauthorized)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message, http.StatusForbidden)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// Conflict creates a conflict error
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message, http.StatusConflict)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// BackendError wraps a failed request against the hosted backend
func BackendError(message string, err error) *AppError {
	return Wrap(err, ErrCodeBackend, message, http.StatusBadGateway)
}

// BackendUnreachable wraps a transport failure against the hosted backend
func BackendUnreachable(err error) *AppError {
	return Wrap(err, ErrCodeBackendUnreachable, "Backend is unreachable", http.StatusServiceUnavailable)
}

// RemoteFunctionError wraps a failed remote function invocation
func RemoteFunctionError(function string, err error) *AppError {
	return Wrap(err, ErrCodeRemoteFunction,
		fmt.Sprintf("Remote function %s failed", function),
		http.StatusBadGateway)
}

// NotConfigured reports a remote feature that is missing configuration
func NotConfigured(message string) *AppError {
	return New(ErrCodeNotConfigured, message, http.StatusServiceUnavailable)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}

// ServiceUnavailable creates a service unavailable error
func ServiceUnavailable(message string) *AppError {
	return New(ErrCodeServiceUnavailable, message, http.StatusServiceUnavailable)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// GetStatusCode returns the HTTP status attached to err, or 500.
func GetStatusCode(err error) int {
	if appErr, ok := As(err); ok && appErr.StatusCode != 0 {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// GetCode returns the code attached to err, or INTERNAL_ERROR.
func GetCode(err error) string {
	if appErr, ok := As(err); ok && appErr.Code != "" {
		return appErr.Code
	}
	return ErrCodeInternal
}
