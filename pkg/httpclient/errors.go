package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// downstreamError mirrors httputil.ErrorBody as returned by storefront routes.
type downstreamError struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Service    string
	StatusCode int
	Message    string
	Fields     map[string]string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s returned status %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Message)
}

// Unwrap maps the status onto the shared sentinels so callers can use errors.Is.
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return apperrors.ErrInvalidInput
	case e.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return apperrors.ErrRateLimited
	case e.StatusCode >= 500:
		return apperrors.ErrUpstreamUnavailable
	default:
		return nil
	}
}

// ParseResponseError reads the body of a non-2xx response into a StatusError.
// A storefront error body ({"error": "..."}) is decoded; any other body is
// kept verbatim (truncated to 1 MiB). The body is consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	statusErr := &StatusError{Service: serviceName, StatusCode: resp.StatusCode}

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		statusErr.Message = fmt.Sprintf("failed to read body: %v", err)
		return statusErr
	}

	var downstream downstreamError
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != "" {
		statusErr.Message = downstream.Error
		statusErr.Fields = downstream.Fields
		return statusErr
	}

	statusErr.Message = string(bodyBytes)
	return statusErr
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
