package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-app/internal/cache"
	"github.com/kjstillabower/weather-forecast-app/internal/lifecycle"
	"github.com/kjstillabower/weather-forecast-app/internal/models"
	"github.com/kjstillabower/weather-forecast-app/internal/pages"
	"github.com/kjstillabower/weather-forecast-app/internal/service"
	"github.com/kjstillabower/weather-forecast-app/internal/store"
	"github.com/kjstillabower/weather-forecast-app/internal/traffic"
)

// stubProvider returns fixed weather for any city, or currentErr.
type stubProvider struct {
	currentErr error
	block      bool // when true, GetCurrentWeather waits for ctx
	calls      atomic.Int32
}

func (p *stubProvider) GetCurrentWeather(ctx context.Context, city string) (models.WeatherData, error) {
	p.calls.Add(1)
	if p.block {
		<-ctx.Done()
		return models.WeatherData{}, ctx.Err()
	}
	if p.currentErr != nil {
		return models.WeatherData{}, p.currentErr
	}
	return models.WeatherData{Name: city, Country: "XX", Temp: 17.6, Description: "clear sky", Icon: "01d", Humidity: 40}, nil
}

func (p *stubProvider) GetForecast(ctx context.Context, city string) ([]models.ForecastData, error) {
	return []models.ForecastData{{DT: 1700000000, Temp: models.TempRange{Day: 10, Min: 8, Max: 12}, Pop: 0.3}}, nil
}

func (p *stubProvider) GetWeeklyHistory(ctx context.Context, city string) ([]models.HistoricalData, error) {
	return nil, errors.New("history unavailable")
}

func (p *stubProvider) GetAstronomy(ctx context.Context, city, date string) (models.AstronomyData, error) {
	return models.AstronomyData{MoonPhase: "Full Moon", MoonIllumination: 99}, nil
}

type brokenBackend struct{ *store.MemoryBackend }

func (brokenBackend) Save(context.Context, string, []string) error { return errors.New("disk full") }

type testEnv struct {
	router  *mux.Router
	handler *Handler
	prefs   *store.Preferences
	traffic *traffic.Tracker
}

type envOption func(*envConfig)

type envConfig struct {
	backend store.Backend
	health  *HealthConfig
	limiter *rate.Limiter
	timeout time.Duration
	logger  *zap.Logger
}

func withBackend(b store.Backend) envOption { return func(c *envConfig) { c.backend = b } }
func withHealth(h *HealthConfig) envOption  { return func(c *envConfig) { c.health = h } }
func withLimiter(l *rate.Limiter) envOption { return func(c *envConfig) { c.limiter = l } }
func withTimeout(d time.Duration) envOption { return func(c *envConfig) { c.timeout = d } }
func withLogger(l *zap.Logger) envOption    { return func(c *envConfig) { c.logger = l } }

func newTestEnv(t testing.TB, provider *stubProvider, opts ...envOption) *testEnv {
	t.Helper()
	cfg := envConfig{backend: store.NewMemoryBackend(), logger: zap.NewNop()}
	for _, o := range opts {
		o(&cfg)
	}
	prefs, err := store.Open(context.Background(), cfg.backend)
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	renderer, err := pages.New()
	if err != nil {
		t.Fatalf("pages.New() error = %v", err)
	}
	svc := service.NewWeatherService(provider, cache.NewInMemoryCache(time.Hour), prefs, service.Config{StaleTTL: time.Hour})
	tracker := traffic.New()
	h := NewHandler(svc, renderer, cfg.health, tracker, cfg.logger)
	router := NewRouter(h, RouterOptions{RequestTimeout: cfg.timeout, Limiter: cfg.limiter})

	lifecycle.Set(lifecycle.Serving)
	t.Cleanup(func() { lifecycle.Set(lifecycle.Starting) })
	return &testEnv{router: router, handler: h, prefs: prefs, traffic: tracker}
}

func (e *testEnv) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}
