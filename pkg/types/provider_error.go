package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies a failed provider call; it is also the metrics outcome label
type ErrorCode string

const (
	ErrCodeUnknown        ErrorCode = "unknown"
	ErrCodeConfiguration  ErrorCode = "configuration"
	ErrCodeAuthentication ErrorCode = "authentication"
	ErrCodeRateLimit      ErrorCode = "rate_limit"
	ErrCodeInvalidRequest ErrorCode = "invalid_request"
	ErrCodeNotFound       ErrorCode = "not_found"
	ErrCodeServerError    ErrorCode = "server_error"
	ErrCodeTimeout        ErrorCode = "timeout"
	ErrCodeNetwork        ErrorCode = "network"
	ErrCodeResponseShape  ErrorCode = "response_shape"
)

// ProviderError is returned by every Provider.Call failure. The delegator
// renders it inline into the tool result; callers inspect it with errors.As.
type ProviderError struct {
	Code       ErrorCode
	Message    string
	StatusCode int // 0 when no HTTP reply was received
	Provider   ProviderType
	Operation  string // "messages" or "chat_completions"

	OriginalErr error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s (status=%d, code=%s)", e.Provider, e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("[%s] %s (code=%s)", e.Provider, e.Message, e.Code)
}

// Unwrap returns the original error for errors.Is/As
func (e *ProviderError) Unwrap() error {
	return e.OriginalErr
}

// WithOperation sets the operation field and returns the error for chaining
func (e *ProviderError) WithOperation(operation string) *ProviderError {
	e.Operation = operation
	return e
}

// WithOriginalErr sets the original error field and returns the error for chaining
func (e *ProviderError) WithOriginalErr(err error) *ProviderError {
	e.OriginalErr = err
	return e
}

func newError(provider ProviderType, code ErrorCode, message string) *ProviderError {
	return &ProviderError{
		Code:     code,
		Message:  message,
		Provider: provider,
	}
}

// NewConfigurationError creates an error for a backend that cannot be called as configured
func NewConfigurationError(provider ProviderType, message string) *ProviderError {
	return newError(provider, ErrCodeConfiguration, message)
}

// NewStatusError creates an error for a non-success HTTP status
func NewStatusError(provider ProviderType, statusCode int, message string) *ProviderError {
	return &ProviderError{
		Code:       codeForStatus(statusCode),
		Message:    message,
		Provider:   provider,
		StatusCode: statusCode,
	}
}

// NewResponseShapeError creates an error for a reply missing the expected fields
func NewResponseShapeError(provider ProviderType, message string) *ProviderError {
	return newError(provider, ErrCodeResponseShape, message)
}

// NewNetworkError creates a new network error
func NewNetworkError(provider ProviderType, message string) *ProviderError {
	return newError(provider, ErrCodeNetwork, message)
}

// NewTimeoutError creates a new timeout error
func NewTimeoutError(provider ProviderType, message string) *ProviderError {
	return newError(provider, ErrCodeTimeout, message)
}

func codeForStatus(statusCode int) ErrorCode {
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrCodeAuthentication
	case http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrCodeTimeout
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return ErrCodeInvalidRequest
	case http.StatusNotFound:
		return ErrCodeNotFound
	default:
		if statusCode >= 500 {
			return ErrCodeServerError
		}
		return ErrCodeUnknown
	}
}

// StatusCodeOf returns the HTTP status carried by err, if any.
func StatusCodeOf(err error) (int, bool) {
	var perr *ProviderError
	if errors.As(err, &perr) && perr.StatusCode > 0 {
		return perr.StatusCode, true
	}
	return 0, false
}

// HasCode reports whether err is a ProviderError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var perr *ProviderError
	return errors.As(err, &perr) && perr.Code == code
}
