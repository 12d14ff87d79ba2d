package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// noRowsCode is the PostgREST code for a single-object request that matched nothing.
const noRowsCode = "PGRST116"

var (
	// ErrNoSession is returned when a call needs a signed-in user but the
	// client is not bound to one.
	ErrNoSession = &AuthError{Message: "no active session"}

	// ErrUnfilteredMutation guards against update or delete calls without
	// a row filter, which would touch the whole table.
	ErrUnfilteredMutation = errors.New("gateway: update and delete require at least one filter")
)

// APIError is the error body returned by the REST layer of the backend
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Hint       string `json:"hint,omitempty"`
	Details    string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("backend error [%s]: %s (status: %d)", e.Code, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("backend error: %s (status: %d)", e.Message, e.StatusCode)
}

// IsNotFound returns true if the error is a 404 not found error
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsNoRows returns true if a single-object request matched no row
func (e *APIError) IsNoRows() bool {
	return e.Code == noRowsCode
}

// IsServerError returns true if the error is a 5xx server error
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500
}

// NetworkError means the request did not complete: DNS, connection reset,
// timeout or a cancelled context.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError means the session is missing, invalid or expired, or the
// credentials were rejected.
type AuthError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed: %s (status: %d)", e.Message, e.StatusCode)
	}
	return "authentication failed: " + e.Message
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteFunctionError is reported when a named remote function fails.
// ErrorType carries the machine readable reason when the function sends one
// (for example "missing_api_key").
type RemoteFunctionError struct {
	Function   string
	StatusCode int
	ErrorType  string
	Message    string
}

func (e *RemoteFunctionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "unknown error"
	}
	if e.ErrorType != "" {
		return fmt.Sprintf("function %s failed [%s]: %s", e.Function, e.ErrorType, msg)
	}
	return fmt.Sprintf("function %s failed: %s", e.Function, msg)
}

// IsNetwork reports whether err is a NetworkError
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsAuth reports whether err is an AuthError
func IsAuth(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsRemoteFunction reports whether err is a RemoteFunctionError
func IsRemoteFunction(err error) bool {
	var fe *RemoteFunctionError
	return errors.As(err, &fe)
}

// RemoteErrorType returns the ErrorType of a RemoteFunctionError, or "".
func RemoteErrorType(err error) string {
	var fe *RemoteFunctionError
	if errors.As(err, &fe) {
		return fe.ErrorType
	}
	return ""
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}

// IsNoRows reports whether a single-row fetch matched nothing
func IsNoRows(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.IsNoRows()
}
