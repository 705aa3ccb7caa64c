package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-app/internal/circuitbreaker"
	"github.com/kjstillabower/weather-forecast-app/internal/observability"
)

// maxBodyBytes bounds how much of a provider response is read.
const maxBodyBytes = 4 << 20

// RetryPolicy configures retries of retryable upstream errors.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetryPolicy is used when a zero policy is passed.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 100 * time.Millisecond, MaxDelay: 2 * time.Second}

// errorMapper turns a non-2xx response into a sentinel-wrapped error.
type errorMapper func(status int, body []byte) error

// apiClient is the HTTP plumbing shared by the provider clients: query building,
// retries with exponential backoff and jitter, circuit breaking, and metrics.
type apiClient struct {
	provider string
	apiKey   string
	baseURL  string
	timeout  time.Duration
	client   *http.Client
	retry    RetryPolicy
	breaker  *circuitbreaker.CircuitBreaker
	mapError errorMapper
}

func newAPIClient(provider, apiKey, baseURL string, timeout time.Duration, retry RetryPolicy, mapError errorMapper) (*apiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s API key is required", ErrInvalidAPIKey, provider)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: %s API key appears invalid (too short)", ErrInvalidAPIKey, provider)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid %s base URL: %w", provider, err)
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if retry.Attempts <= 0 {
		retry = DefaultRetryPolicy
	}
	return &apiClient{
		provider: provider,
		apiKey:   apiKey,
		baseURL:  strings.TrimRight(baseURL, "/"),
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
		retry:    retry,
		mapError: mapError,
	}, nil
}

// getJSON GETs baseURL+path with params and decodes the body into out, retrying
// retryable failures. keyParam names the query parameter carrying the API key.
func (c *apiClient) getJSON(ctx context.Context, path, keyParam string, params url.Values, out any) error {
	var lastErr error
	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			observability.UpstreamRetriesTotal.WithLabelValues(c.provider).Inc()
			delay := c.backoff(attempt)
			observability.LoggerFromContext(ctx).Debug("retrying upstream call",
				zap.String("provider", c.provider),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := c.callOnce(ctx, path, keyParam, params, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !isRetryable(err) {
			observability.UpstreamErrorsTotal.WithLabelValues(c.provider, string(CategorizeError(err))).Inc()
			return err
		}
	}
	observability.UpstreamErrorsTotal.WithLabelValues(c.provider, string(CategorizeError(lastErr))).Inc()
	return fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *apiClient) callOnce(ctx context.Context, path, keyParam string, params url.Values, out any) error {
	if c.breaker == nil {
		return c.call(ctx, path, keyParam, params, out)
	}
	return c.breaker.Call(ctx, func() error {
		return c.call(ctx, path, keyParam, params, out)
	})
}

func (c *apiClient) call(ctx context.Context, path, keyParam string, params url.Values, out any) error {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, path, keyParam, params)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(c.provider, "error").Inc()
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		observability.UpstreamCallsTotal.WithLabelValues(c.provider, "error").Inc()
		observability.UpstreamDuration.WithLabelValues(c.provider, "error").Observe(time.Since(start).Seconds())
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return fmt.Errorf("request timeout: %w", err)
		}
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.UpstreamCallsTotal.WithLabelValues(c.provider, status).Inc()
	observability.UpstreamDuration.WithLabelValues(c.provider, status).Observe(time.Since(start).Seconds())

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.mapError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *apiClient) buildRequest(ctx context.Context, path, keyParam string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set(keyParam, c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := observability.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	return req, nil
}

func (c *apiClient) backoff(attempt int) time.Duration {
	delay := float64(c.retry.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retry.MaxDelay) {
		delay = float64(c.retry.MaxDelay)
	}
	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "http request failed")
}

// IsBreakerFailure reports whether err should count against provider health.
// Caller mistakes (unknown city, bad request) do not trip the breaker.
func IsBreakerFailure(err error) bool {
	return !errors.Is(err, ErrLocationNotFound) && !errors.Is(err, ErrInvalidRequest)
}

func statusLabel(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "success"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limited"
	case statusCode >= 400 && statusCode < 500:
		return "client_error"
	case statusCode >= 500:
		return "server_error"
	default:
		return "error"
	}
}
