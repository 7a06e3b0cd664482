package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// ErrorBody is the error payload returned by every storefront route.
// Error carries the route's human-readable message. Code, Fields and
// RequestID are only set for client errors; a 5xx body is exactly
// {"error": message}.
type ErrorBody struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
// Headers are already sent when encoding fails, so the error is dropped.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err to a status code and writes an ErrorBody.
// Validation failures become 400 with field details. Everything else is
// written with the caller's fixed message and logged with the request-scoped
// logger, falling back to fallback when none is mounted.
func WriteError(w http.ResponseWriter, r *http.Request, err error, message string, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}
	requestID := logger.CorrelationIDFromContext(r.Context())

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, ErrorBody{
			Error:     "request validation failed",
			Code:      "VALIDATION_ERROR",
			Fields:    valErr.Fields(),
			RequestID: requestID,
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	if status == http.StatusBadRequest {
		WriteJSON(w, status, ErrorBody{
			Error:     validationMessage(err),
			Code:      "VALIDATION_ERROR",
			RequestID: requestID,
		})
		return
	}

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), message,
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", requestID),
		)
	}

	WriteJSON(w, status, ErrorBody{Error: message})
}

func validationMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
