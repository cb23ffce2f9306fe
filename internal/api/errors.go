package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"meal-shopper/internal/logx"
	"meal-shopper/internal/pricing"
	"meal-shopper/internal/workflow"
)

// ValidationError reports a malformed request. It is always answered with
// 400 before the workflow is involved.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// statusFor maps workflow errors to HTTP status codes.
func statusFor(err error) int {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrGenerationFailed),
		errors.Is(err, pricing.ErrNoStoresAvailable):
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logx.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logx.Warn().Err(err).Msg("failed to write response")
	}
}
