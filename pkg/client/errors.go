package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes the API returns
const (
	CodeValidation         = "VALIDATION_ERROR"
	CodeNotConfigured      = "NOT_CONFIGURED"
	CodeBackendUnreachable = "BACKEND_UNREACHABLE"
	CodeRateLimited        = "RATE_LIMITED"
)

// APIError represents an error returned by the API
type APIError struct {
	StatusCode int         `json:"-"`
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("API error: %s (status: %d)", e.Message, e.StatusCode)
}

// IsNotFound returns true if the error is a 404 not found error
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized returns true if the error is a 401 unauthorized error
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsForbidden returns true if the error is a 403 forbidden error
func (e *APIError) IsForbidden() bool {
	return e.StatusCode == http.StatusForbidden
}

// IsValidationError returns true if the request was rejected as invalid
func (e *APIError) IsValidationError() bool {
	return e.StatusCode == http.StatusBadRequest || e.Code == CodeValidation
}

// IsNotConfigured returns true if the server lacks a feature's credentials,
// such as the assistant's API key
func (e *APIError) IsNotConfigured() bool {
	return e.Code == CodeNotConfigured
}

// IsRateLimited returns true if the request was throttled
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsServerError returns true if the error is a 5xx server error
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// AsAPIError unwraps err into an *APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
