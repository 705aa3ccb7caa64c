package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-app/internal/client"
	"github.com/kjstillabower/weather-forecast-app/internal/observability"
)

func TestCorrelationID_EchoedAndGenerated(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/about", nil)
	req.Header.Set(correlationHeader, "abc-123")
	if got := env.serve(req).Header().Get(correlationHeader); got != "abc-123" {
		t.Errorf("echoed id = %q, want abc-123", got)
	}

	w := env.serve(httptest.NewRequest(http.MethodGet, "/about", nil))
	if got := w.Header().Get(correlationHeader); len(got) != 36 {
		t.Errorf("generated id = %q, want a UUID", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/about", nil)
	req.Header.Set(correlationHeader, strings.Repeat("x", 200))
	if got := env.serve(req).Header().Get(correlationHeader); len(got) != 36 {
		t.Errorf("oversized id not replaced: %q", got)
	}
}

func TestCorrelationID_InContextLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	var seen string
	h := CorrelationIDMiddleware(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = observability.CorrelationID(r.Context())
		observability.LoggerFromContext(r.Context()).Info("inside")
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(correlationHeader, "corr-9")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "corr-9" {
		t.Errorf("context id = %q", seen)
	}
	entries := logs.FilterMessage("inside").All()
	if len(entries) != 1 || entries[0].ContextMap()["correlation_id"] != "corr-9" {
		t.Errorf("log entries = %v", entries)
	}
}

func TestMetricsMiddleware_RouteTemplateLabel(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	counter := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/weather/{city}", "2xx")
	before := testutil.ToFloat64(counter)

	env.serve(httptest.NewRequest(http.MethodGet, "/api/weather/Lima", nil))
	env.serve(httptest.NewRequest(http.MethodGet, "/api/weather/Quito", nil))

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("route counter delta = %v, want 2", got)
	}

	unmatched := observability.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "unmatched", "4xx")
	before = testutil.ToFloat64(unmatched)
	env.serve(httptest.NewRequest(http.MethodGet, "/does/not/exist", nil))
	if got := testutil.ToFloat64(unmatched) - before; got != 1 {
		t.Errorf("unmatched counter delta = %v, want 1", got)
	}
}

func TestStatusClass(t *testing.T) {
	for code, want := range map[int]string{200: "2xx", 303: "3xx", 404: "4xx", 504: "5xx"} {
		if got := statusClass(code); got != want {
			t.Errorf("statusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, &stubProvider{}, withLimiter(rate.NewLimiter(rate.Every(time.Hour), 1)))

	if w := env.serve(httptest.NewRequest(http.MethodGet, "/api/recent", nil)); w.Code != http.StatusOK {
		t.Fatalf("first request = %d, want 200", w.Code)
	}

	w := env.serve(httptest.NewRequest(http.MethodGet, "/api/recent", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
	if body := decodeError(t, w); body.Code != CodeRateLimited {
		t.Errorf("code = %q", body.Code)
	}

	w = env.serve(httptest.NewRequest(http.MethodGet, "/about", nil))
	if w.Code != http.StatusTooManyRequests || strings.Contains(w.Header().Get("Content-Type"), "json") {
		t.Errorf("page denial = %d %q", w.Code, w.Header().Get("Content-Type"))
	}

	if w := env.serve(httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusOK {
		t.Errorf("/health was rate limited: %d", w.Code)
	}
	if got := env.traffic.Window(time.Minute).Denials; got != 2 {
		t.Errorf("recorded denials = %d, want 2", got)
	}
}

func TestTimeoutMiddleware_SetsDeadline(t *testing.T) {
	var hasDeadline bool
	h := TimeoutMiddleware(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !hasDeadline {
		t.Error("request context has no deadline")
	}

	h = TimeoutMiddleware(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if hasDeadline {
		t.Error("zero timeout should leave the context alone")
	}
}

func TestRecordOutcome(t *testing.T) {
	env := newTestEnv(t, &stubProvider{})
	env.serve(httptest.NewRequest(http.MethodGet, "/api/weather/Paris", nil))
	env.serve(httptest.NewRequest(http.MethodGet, "/api/weather/%24%24", nil))

	snap := env.traffic.Window(time.Minute)
	if snap.Successes != 2 || snap.Failures != 0 {
		t.Errorf("snapshot = %+v, want 2 successes", snap)
	}
	env.handler.recordOutcome(client.ErrUpstreamFailure)
	if got := env.traffic.Window(time.Minute).Failures; got != 1 {
		t.Errorf("failures = %d, want 1", got)
	}
}
