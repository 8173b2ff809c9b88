package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mixmint/mixmint-downloads/internal/domain"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	ErrCodeBadRequest       ErrorCode = "bad_request"
	ErrCodeNotFound         ErrorCode = "not_found"
	ErrCodeValidationFailed ErrorCode = "validation_failed"
	ErrCodeUnauthorized     ErrorCode = "unauthorized"
	ErrCodeForbidden        ErrorCode = "forbidden"
	ErrCodeRateLimited      ErrorCode = "rate_limited"
	ErrCodePayloadTooLarge  ErrorCode = "payload_too_large"

	// Server errors (5xx)
	ErrCodeInternalError ErrorCode = "internal_error"
)

// HTTPStatus returns the status code an error code is served with
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrCodeBadRequest, ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// APIError is the JSON error envelope returned by every endpoint
type APIError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	jsonErr, _ := json.Marshal(e)
	return string(jsonErr)
}

// Status is shorthand for e.Code.HTTPStatus()
func (e *APIError) Status() int {
	return e.Code.HTTPStatus()
}

// New builds an APIError, joining details with ", "
func New(code ErrorCode, message string, details ...string) *APIError {
	return &APIError{
		Code:    code,
		Message: message,
		Details: strings.Join(details, ", "),
	}
}

func NewBadRequestError(message string, details ...string) *APIError {
	return New(ErrCodeBadRequest, message, details...)
}

func NewNotFoundError(message string, details ...string) *APIError {
	return New(ErrCodeNotFound, message, details...)
}

func NewValidationError(details ...string) *APIError {
	return New(ErrCodeValidationFailed, "Validation failed", details...)
}

func NewUnauthorizedError(message string, details ...string) *APIError {
	return New(ErrCodeUnauthorized, message, details...)
}

func NewForbiddenError(message string, details ...string) *APIError {
	return New(ErrCodeForbidden, message, details...)
}

func NewInternalError(message string, details ...string) *APIError {
	return New(ErrCodeInternalError, message, details...)
}

func NewRateLimitedError(message string, details ...string) *APIError {
	return New(ErrCodeRateLimited, message, details...)
}

func NewPayloadTooLargeError(message string, details ...string) *APIError {
	return New(ErrCodePayloadTooLarge, message, details...)
}

// FromDomain translates a domain sentinel error into its client-facing envelope.
// It returns false for anything that must be treated as an internal error.
func FromDomain(err error) (*APIError, bool) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return NewUnauthorizedError("Authentication required"), true
	case errors.Is(err, domain.ErrAccessDenied):
		return NewForbiddenError("Access denied"), true
	case errors.Is(err, domain.ErrInvalidToken):
		// expired, used, unknown and IP-mismatched tokens share one message
		return NewForbiddenError(domain.ErrInvalidToken.Error()), true
	case errors.Is(err, domain.ErrContentNotFound):
		return NewNotFoundError("Content not found"), true
	case errors.Is(err, domain.ErrVersionNotFound):
		return NewNotFoundError("Content version not found"), true
	case errors.Is(err, domain.ErrTooManyDownloads):
		return NewRateLimitedError("Too many concurrent downloads, please wait for current downloads to complete"), true
	case errors.Is(err, domain.ErrUploadTooLarge):
		return NewPayloadTooLargeError("Upload is too large"), true
	case errors.Is(err, domain.ErrRateLimited):
		return NewRateLimitedError("Too many download requests, please try again later"), true
	default:
		return nil, false
	}
}
