package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	apperrors "probereport/internal/errors"
)

// QueryParamValidator validates query parameters and answers invalid ones
// with a validation problem
type QueryParamValidator struct {
	logger       *slog.Logger
	errorHandler *apperrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apperrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateInt parses an integer parameter in [min, max]. An absent parameter
// yields defaultValue. On failure the response is written and ok is false.
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max, defaultValue int) (int, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	n, err := strconv.Atoi(value)
	if err != nil {
		v.reject(w, r, param, fmt.Sprintf("%s must be a valid integer", param))
		return 0, false
	}
	if n < min || n > max {
		v.reject(w, r, param, fmt.Sprintf("%s must be between %d and %d", param, min, max))
		return 0, false
	}
	return n, true
}

// ValidateString returns a string parameter no longer than maxLen
func (v *QueryParamValidator) ValidateString(w http.ResponseWriter, r *http.Request, param string, maxLen int) (string, bool) {
	value := r.URL.Query().Get(param)
	if len(value) > maxLen {
		v.reject(w, r, param, fmt.Sprintf("%s must be at most %d characters", param, maxLen))
		return "", false
	}
	return value, true
}

func (v *QueryParamValidator) reject(w http.ResponseWriter, r *http.Request, param, message string) {
	v.logger.DebugContext(r.Context(), "invalid query parameter",
		slog.String("param", param),
		slog.String("value", r.URL.Query().Get(param)))
	v.errorHandler.HandleError(w, r, apperrors.ErrValidation(param, message))
}
