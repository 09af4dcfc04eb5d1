package models

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidURL      = "INVALID_URL"
	ErrCodeValidation      = "VALIDATION_FAILED"
	ErrCodeCrawlFailed     = "CRAWL_FAILED"
	ErrCodeSerialization   = "SERIALIZATION_FAILED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error carried by API error envelopes.
type ErrorDetail struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

// ServiceError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ServiceError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError.
func NewServiceError(code, message string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ServiceError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// InvalidURLError reports a seed or page URL that is not an absolute http(s) URL.
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("invalid url %q: %s", e.URL, e.Reason)
}

// ValidationError collects every problem found in a crawl or sitemap request.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// SerializationError reports generated XML that failed its own self-check.
type SerializationError struct {
	Reason string
}

func (e *SerializationError) Error() string {
	return "generated sitemap is invalid: " + e.Reason
}

// HTTPStatus maps an error from the taxonomy above to the status code the
// API responds with. Input problems are 4xx; everything else is a 500.
func HTTPStatus(err error) int {
	var (
		invalidURL *InvalidURLError
		validation *ValidationError
		svc        *ServiceError
	)
	switch {
	case errors.As(err, &invalidURL), errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &svc):
		switch svc.Code {
		case ErrCodeInvalidInput, ErrCodeInvalidURL, ErrCodeValidation:
			return http.StatusBadRequest
		case ErrCodeUnauthorized:
			return http.StatusUnauthorized
		case ErrCodeRateLimited:
			return http.StatusTooManyRequests
		case ErrCodeRequestTooLarge:
			return http.StatusRequestEntityTooLarge
		case ErrCodeNotFound:
			return http.StatusNotFound
		}
	}
	return http.StatusInternalServerError
}

// Detail converts any error into an ErrorDetail, choosing the code from the
// concrete type when one is recognised.
func Detail(err error) *ErrorDetail {
	var (
		invalidURL *InvalidURLError
		validation *ValidationError
		serial     *SerializationError
		svc        *ServiceError
	)
	switch {
	case errors.As(err, &svc):
		d := svc.ToDetail()
		if errors.As(svc.Err, &validation) {
			d.Details = validation.Errors
		}
		return d
	case errors.As(err, &invalidURL):
		return &ErrorDetail{Code: ErrCodeInvalidURL, Message: invalidURL.Error()}
	case errors.As(err, &validation):
		return &ErrorDetail{Code: ErrCodeValidation, Message: "validation failed", Details: validation.Errors}
	case errors.As(err, &serial):
		return &ErrorDetail{Code: ErrCodeSerialization, Message: serial.Error()}
	default:
		return &ErrorDetail{Code: ErrCodeInternal, Message: err.Error()}
	}
}
