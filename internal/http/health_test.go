package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-forecast-app/internal/lifecycle"
	"github.com/kjstillabower/weather-forecast-app/internal/traffic"
)

type healthBody struct {
	Status        string            `json:"status"`
	Service       string            `json:"service"`
	Checks        map[string]string `json:"checks"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptimeSeconds"`
}

func getHealth(t *testing.T, env *testEnv) (int, healthBody) {
	t.Helper()
	w := env.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	var body healthBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	return w.Code, body
}

func thresholds() *HealthConfig {
	return &HealthConfig{
		Window:            time.Minute,
		DegradedErrorPct:  50,
		OverloadDenialPct: 30,
		MinRequests:       4,
		StartTime:         time.Now().Add(-90 * time.Second),
		Version:           "1.2.3",
	}
}

func TestHealth_Healthy(t *testing.T) {
	env := newTestEnv(t, &stubProvider{}, withHealth(thresholds()))
	code, body := getHealth(t, env)
	if code != http.StatusOK || body.Status != "healthy" {
		t.Fatalf("health = %d %q", code, body.Status)
	}
	if body.Service == "" || body.Version != "1.2.3" || body.UptimeSeconds < 90 {
		t.Errorf("body = %+v", body)
	}
}

func TestHealth_Lifecycle(t *testing.T) {
	env := newTestEnv(t, &stubProvider{}, withHealth(thresholds()))
	for phase, want := range map[lifecycle.Phase]string{
		lifecycle.Starting: "starting",
		lifecycle.Draining: "shutting-down",
	} {
		lifecycle.Set(phase)
		code, body := getHealth(t, env)
		if code != http.StatusServiceUnavailable || body.Status != want {
			t.Errorf("phase %v: health = %d %q, want 503 %q", phase, code, body.Status, want)
		}
	}
}

func TestHealth_FailingCheck(t *testing.T) {
	cfg := thresholds()
	cfg.Checks = []HealthCheck{
		{Name: "store", Check: func(context.Context) error { return nil }},
		{Name: "cache", Check: func(context.Context) error { return errors.New("connection refused") }},
	}
	env := newTestEnv(t, &stubProvider{}, withHealth(cfg))
	code, body := getHealth(t, env)
	if code != http.StatusServiceUnavailable || body.Status != "degraded" {
		t.Fatalf("health = %d %q", code, body.Status)
	}
	if body.Checks["store"] != "healthy" || body.Checks["cache"] != "unhealthy" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestHealth_CheckTimeout(t *testing.T) {
	cfg := thresholds()
	cfg.CheckTimeout = 10 * time.Millisecond
	cfg.Checks = []HealthCheck{{Name: "slow", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}}
	env := newTestEnv(t, &stubProvider{}, withHealth(cfg))
	if _, body := getHealth(t, env); body.Checks["slow"] != "unhealthy" {
		t.Errorf("checks = %v", body.Checks)
	}
}

func TestHealth_TrafficThresholds(t *testing.T) {
	tests := []struct {
		name     string
		outcomes map[traffic.Outcome]int
		want     string
	}{
		{"below min requests", map[traffic.Outcome]int{traffic.Failure: 3}, "healthy"},
		{"error rate", map[traffic.Outcome]int{traffic.Success: 2, traffic.Failure: 3}, "degraded"},
		{"overloaded", map[traffic.Outcome]int{traffic.Success: 3, traffic.Denied: 2}, "overloaded"},
		{"overload wins", map[traffic.Outcome]int{traffic.Failure: 3, traffic.Denied: 3}, "overloaded"},
		{"mostly fine", map[traffic.Outcome]int{traffic.Success: 9, traffic.Failure: 1}, "healthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, &stubProvider{}, withHealth(thresholds()))
			for o, n := range tt.outcomes {
				for range n {
					env.traffic.Record(o)
				}
			}
			_, body := getHealth(t, env)
			if body.Status != tt.want {
				t.Errorf("status = %q, want %q", body.Status, tt.want)
			}
		})
	}
}

func TestHealth_LogsTransitions(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	env := newTestEnv(t, &stubProvider{}, withHealth(thresholds()), withLogger(zap.New(core)))

	getHealth(t, env)
	getHealth(t, env)
	lifecycle.Set(lifecycle.Draining)
	getHealth(t, env)

	entries := logs.FilterMessage("health status transition").All()
	if len(entries) != 1 {
		t.Fatalf("transition logs = %d, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["previous_status"] != "healthy" || fields["current_status"] != "shutting-down" {
		t.Errorf("fields = %v", fields)
	}
}

func TestHealth_NoConfig(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	if code, body := getHealth(t, env); code != http.StatusOK || body.Status != "healthy" {
		t.Errorf("health = %d %q", code, body.Status)
	}
}
