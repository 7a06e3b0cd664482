package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by the storefront layers.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrRateLimited         = errors.New("rate limited")
)

// AppError represents a structured application error with HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// UpstreamUnavailable wraps a failure to reach the product feed (network
// error, timeout, open breaker or non-2xx status).
func UpstreamUnavailable(cause error) *AppError {
	return &AppError{
		Code:    "UPSTREAM_UNAVAILABLE",
		Message: "product feed unavailable",
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrUpstreamUnavailable, cause),
	}
}

// StoreUnavailable wraps a failure of the wishlist store backend.
func StoreUnavailable(cause error) *AppError {
	return &AppError{
		Code:    "STORE_UNAVAILABLE",
		Message: "wishlist store unavailable",
		Status:  http.StatusInternalServerError,
		Err:     errors.Join(ErrStoreUnavailable, cause),
	}
}

// HTTPStatus returns the HTTP status code for the given error.
// Upstream and store failures surface as 500: callers are not told which
// dependency failed.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// IsValidation reports whether err carries the ErrInvalidInput sentinel.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
