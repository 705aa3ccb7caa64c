package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-app/internal/client"
	"github.com/kjstillabower/weather-forecast-app/internal/observability"
	"github.com/kjstillabower/weather-forecast-app/internal/service"
)

// Error codes returned in the JSON error envelope.
const (
	CodeInvalidCity         = "INVALID_CITY"
	CodeEmptyQuery          = "EMPTY_QUERY"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeStoreUnavailable    = "STORE_UNAVAILABLE"
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
	CodeRateLimited         = "RATE_LIMITED"
	CodeInvalidForm         = "INVALID_FORM"
)

type apiError struct {
	status  int
	code    string
	message string
}

// classify maps a service error to a status, code and user-facing message.
func classify(err error) apiError {
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		return apiError{http.StatusBadRequest, CodeEmptyQuery, "Search query is empty"}
	case errors.Is(err, service.ErrInvalidCity):
		return apiError{http.StatusBadRequest, CodeInvalidCity, "City name is invalid"}
	case errors.Is(err, client.ErrLocationNotFound):
		return apiError{http.StatusNotFound, CodeNotFound, "City not found"}
	case errors.Is(err, service.ErrStoreUnavailable):
		return apiError{http.StatusServiceUnavailable, CodeStoreUnavailable, "Unable to save your preferences"}
	case errors.Is(err, context.DeadlineExceeded):
		return apiError{http.StatusGatewayTimeout, CodeUpstreamUnavailable, "Weather data took too long to load"}
	}
	return apiError{http.StatusServiceUnavailable, CodeUpstreamUnavailable, "Unable to fetch weather data"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes {"error":{"code","message","requestId"}}.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": observability.CorrelationID(r.Context()),
		},
	})
}

// writeServiceError classifies err, logs it and writes the error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	e := classify(err)
	logServiceError(r, e, err)
	writeError(w, r, e.status, e.code, e.message)
}

func logServiceError(r *http.Request, e apiError, err error) {
	logger := observability.LoggerFromContext(r.Context())
	if e.status >= http.StatusInternalServerError {
		logger.Warn("request failed", zap.String("code", e.code), zap.Error(err))
		return
	}
	logger.Debug("request rejected", zap.String("code", e.code), zap.Error(err))
}
