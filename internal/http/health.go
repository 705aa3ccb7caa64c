package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-app/internal/lifecycle"
	"github.com/kjstillabower/weather-forecast-app/internal/observability"
)

// HealthCheck checks one dependency. A nil error means healthy.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthConfig holds the thresholds and dependency checks behind /health.
type HealthConfig struct {
	Window            time.Duration // sliding window for error and denial rates
	DegradedErrorPct  int           // 0 disables
	OverloadDenialPct int           // 0 disables
	MinRequests       int           // rates are ignored below this many requests
	CheckTimeout      time.Duration
	Checks            []HealthCheck
	StartTime         time.Time
	Version           string
}

type healthResult struct {
	status     string
	statusCode int
	reason     string
	checks     map[string]string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus(r.Context())

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	resp := map[string]any{
		"status":    result.status,
		"service":   observability.ServiceName,
		"checks":    result.checks,
		"timestamp": h.now().UTC().Format(time.RFC3339),
	}
	if cfg := h.health; cfg != nil {
		resp["version"] = cfg.Version
		if !cfg.StartTime.IsZero() {
			resp["uptimeSeconds"] = int64(h.now().Sub(cfg.StartTime).Seconds())
		}
	}
	writeJSON(w, result.statusCode, resp)
}

// computeHealthStatus evaluates, in order: shutting-down, starting, failing
// dependency checks, overloaded, degraded error rate, healthy.
func (h *Handler) computeHealthStatus(ctx context.Context) healthResult {
	checks := map[string]string{}
	switch phase := lifecycle.Current(); phase {
	case lifecycle.Draining, lifecycle.Starting:
		return healthResult{phase.String(), http.StatusServiceUnavailable, "lifecycle", checks}
	}
	cfg := h.health
	if cfg == nil {
		return healthResult{"healthy", http.StatusOK, "", checks}
	}

	failed := ""
	for _, c := range cfg.Checks {
		if err := runCheck(ctx, c, cfg.CheckTimeout); err != nil {
			checks[c.Name] = "unhealthy"
			if failed == "" {
				failed = c.Name
			}
			h.logger.Debug("health check failed", zap.String("check", c.Name), zap.Error(err))
			continue
		}
		checks[c.Name] = "healthy"
	}
	if failed != "" {
		return healthResult{"degraded", http.StatusServiceUnavailable, failed + "_unhealthy", checks}
	}

	snap := h.traffic.Window(cfg.Window)
	if snap.Requests() >= cfg.MinRequests {
		if cfg.OverloadDenialPct > 0 && snap.DenialPct() >= float64(cfg.OverloadDenialPct) {
			return healthResult{"overloaded", http.StatusServiceUnavailable, "overload_threshold", checks}
		}
		if cfg.DegradedErrorPct > 0 && snap.ErrorPct() >= float64(cfg.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach", checks}
		}
	}
	return healthResult{"healthy", http.StatusOK, "", checks}
}

func runCheck(ctx context.Context, c HealthCheck, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Check(ctx)
}
