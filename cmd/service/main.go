package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kjstillabower/weather-forecast-app/internal/cache"
	"github.com/kjstillabower/weather-forecast-app/internal/circuitbreaker"
	"github.com/kjstillabower/weather-forecast-app/internal/client"
	"github.com/kjstillabower/weather-forecast-app/internal/config"
	httphandler "github.com/kjstillabower/weather-forecast-app/internal/http"
	"github.com/kjstillabower/weather-forecast-app/internal/lifecycle"
	"github.com/kjstillabower/weather-forecast-app/internal/observability"
	"github.com/kjstillabower/weather-forecast-app/internal/pages"
	"github.com/kjstillabower/weather-forecast-app/internal/service"
	"github.com/kjstillabower/weather-forecast-app/internal/store"
	"github.com/kjstillabower/weather-forecast-app/internal/traffic"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	var checks []httphandler.HealthCheck
	retry := client.RetryPolicy{Attempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay, MaxDelay: cfg.RetryMaxDelay}

	var openWeather *client.OpenWeatherClient
	if cfg.OpenWeatherAPIKey != "" {
		openWeather, err = client.NewOpenWeatherClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherURL, cfg.UpstreamTimeout, retry)
		if err != nil {
			logger.Fatal("openweather client", zap.Error(err))
		}
		cb := newBreaker(cfg, "openweather", logger)
		openWeather.SetCircuitBreaker(cb)
		checks = append(checks, breakerCheck("openweather", cb))
		if cfg.ValidateKeyOnStart {
			if err := openWeather.ValidateAPIKey(context.Background()); err != nil {
				logger.Fatal("openweather key rejected", zap.Error(err))
			}
		}
	} else {
		logger.Warn("OPENWEATHER_API_KEY not set; serving mock current weather and forecast")
	}

	var weatherAPI *client.WeatherAPIClient
	if cfg.WeatherAPIKey != "" {
		weatherAPI, err = client.NewWeatherAPIClient(cfg.WeatherAPIKey, cfg.WeatherAPIURL, cfg.UpstreamTimeout, retry)
		if err != nil {
			logger.Fatal("weatherapi client", zap.Error(err))
		}
		cb := newBreaker(cfg, "weatherapi", logger)
		weatherAPI.SetCircuitBreaker(cb)
		checks = append(checks, breakerCheck("weatherapi", cb))
	} else {
		logger.Warn("WEATHERAPI_KEY not set; serving mock history and astronomy")
	}
	provider := client.NewComposite(openWeather, weatherAPI, client.NewMockProvider(0))

	var reportCache cache.Cache
	var memcached *cache.MemcachedCache
	switch cfg.CacheBackend {
	case config.CacheMemcached:
		memcached, err = cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns, cfg.CacheRetain)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		reportCache = memcached
		checks = append(checks, httphandler.HealthCheck{Name: "cache", Check: func(context.Context) error { return memcached.Ping() }})
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		reportCache = cache.NewInMemoryCache(cfg.CacheRetain)
		logger.Info("cache backend: in_memory")
	}

	backend, err := store.NewBackend(cfg.StoreBackend, cfg.StorePath)
	if err != nil {
		logger.Fatal("preference store", zap.Error(err))
	}
	if sqlite, ok := backend.(*store.SQLiteBackend); ok {
		checks = append(checks, httphandler.HealthCheck{Name: "store", Check: sqlite.Ping})
	}
	prefs, err := store.Open(context.Background(), backend)
	if err != nil {
		logger.Fatal("load preferences", zap.Error(err))
	}
	logger.Info("preference store opened", zap.String("backend", cfg.StoreBackend), zap.String("path", cfg.StorePath))

	weatherService := service.NewWeatherService(provider, reportCache, prefs, service.Config{
		CacheTTL:     cfg.CacheTTL,
		StaleTTL:     cfg.CacheStaleTTL,
		FetchTimeout: cfg.FetchTimeout,
		MinCityLen:   cfg.MinCityLen,
		MaxCityLen:   cfg.MaxCityLen,
	})

	renderer, err := pages.New()
	if err != nil {
		logger.Fatal("templates", zap.Error(err))
	}
	healthConfig := &httphandler.HealthConfig{
		Window:            cfg.HealthWindow,
		DegradedErrorPct:  cfg.HealthDegradedErrorPct,
		OverloadDenialPct: cfg.HealthOverloadDenialPct,
		MinRequests:       cfg.HealthMinRequests,
		CheckTimeout:      cfg.HealthCheckTimeout,
		Checks:            checks,
		StartTime:         time.Now(),
		Version:           cfg.Version,
	}
	handler := httphandler.NewHandler(weatherService, renderer, healthConfig, traffic.New(), logger)

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	inFlight := &httphandler.InFlightTracker{}
	router := httphandler.NewRouter(handler, httphandler.RouterOptions{
		RequestTimeout: cfg.RequestTimeout,
		Limiter:        limiter,
		InFlight:       inFlight,
	})

	if len(cfg.TrackedCities) > 0 {
		observability.SetTrackedCities(cfg.TrackedCities)
	}

	warmCtx, stopWarming := context.WithCancel(context.Background())
	defer stopWarming()
	if len(cfg.WarmCities) > 0 {
		warmer := cache.NewWarmer(weatherService, logger)
		initCtx, cancel := context.WithTimeout(warmCtx, 30*time.Second)
		if err := warmer.Warm(initCtx, cfg.WarmCities); err != nil {
			logger.Warn("cache warming failed", zap.Error(err))
		}
		cancel()
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(warmCtx, cfg.WarmCities, cfg.WarmInterval); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	lifecycle.Set(lifecycle.Serving)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.Set(lifecycle.Draining)
	stopWarming()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight.Count()))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.DrainTimeout)
	defer waitCancel()
	if err := inFlight.WaitForZero(waitCtx, 50*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", inFlight.Count()))
	}

	if err := prefs.Close(); err != nil {
		logger.Error("preference store close", zap.Error(err))
	}
	if memcached != nil {
		if err := memcached.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func newBreaker(cfg *config.Config, component string, logger *zap.Logger) *circuitbreaker.CircuitBreaker {
	observability.CircuitBreakerState.WithLabelValues(component).Set(float64(circuitbreaker.StateClosed))
	return circuitbreaker.New(circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		SuccessThreshold: cfg.BreakerSuccessThreshold,
		Timeout:          cfg.BreakerTimeout,
		Component:        component,
		IsFailure:        client.IsBreakerFailure,
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("component", component),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
			observability.RecordCircuitBreakerTransition(component, from.String(), to.String(), int(to))
		},
	})
}

// breakerCheck reports unhealthy while the breaker is open.
func breakerCheck(name string, cb *circuitbreaker.CircuitBreaker) httphandler.HealthCheck {
	return httphandler.HealthCheck{Name: name, Check: func(context.Context) error {
		if cb.State() == circuitbreaker.StateOpen {
			return circuitbreaker.ErrOpen
		}
		return nil
	}}
}
