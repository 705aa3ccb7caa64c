//go:build integration

package testhelpers

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/kjstillabower/weather-forecast-app/internal/cache"
	"github.com/kjstillabower/weather-forecast-app/internal/client"
	"github.com/kjstillabower/weather-forecast-app/internal/config"
	"github.com/kjstillabower/weather-forecast-app/internal/service"
	"github.com/kjstillabower/weather-forecast-app/internal/store"
)

// IntegrationTestConfig holds the live-provider settings for integration tests.
type IntegrationTestConfig struct {
	OpenWeatherKey string
	WeatherAPIKey  string
	CacheBackend   string // "in_memory" or "memcached"
	MemcachedAddr  string
}

// GetIntegrationConfig reads keys from the environment and skips the test when
// neither provider is configured.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	cfg := IntegrationTestConfig{
		OpenWeatherKey: os.Getenv("OPENWEATHER_API_KEY"),
		WeatherAPIKey:  os.Getenv("WEATHERAPI_KEY"),
		CacheBackend:   os.Getenv("INTEGRATION_CACHE_BACKEND"),
		MemcachedAddr:  os.Getenv("MEMCACHED_ADDRS"),
	}
	if cfg.OpenWeatherKey == "" && cfg.WeatherAPIKey == "" {
		t.Skip("OPENWEATHER_API_KEY and WEATHERAPI_KEY not set, skipping integration test")
	}
	if cfg.MemcachedAddr == "" {
		cfg.MemcachedAddr = "localhost:11211"
	}
	return cfg
}

// SetupIntegrationProvider builds the composite provider over whichever live
// clients have keys. Missing ones fall back to the mock.
func SetupIntegrationProvider(t *testing.T, cfg IntegrationTestConfig) *client.Composite {
	t.Helper()
	retry := client.RetryPolicy{Attempts: 2, BaseDelay: 200 * time.Millisecond, MaxDelay: time.Second}
	var ow *client.OpenWeatherClient
	if cfg.OpenWeatherKey != "" {
		c, err := client.NewOpenWeatherClient(cfg.OpenWeatherKey, "", 10*time.Second, retry)
		if err != nil {
			t.Fatalf("NewOpenWeatherClient() error = %v", err)
		}
		ow = c
	}
	var wa *client.WeatherAPIClient
	if cfg.WeatherAPIKey != "" {
		c, err := client.NewWeatherAPIClient(cfg.WeatherAPIKey, "", 10*time.Second, retry)
		if err != nil {
			t.Fatalf("NewWeatherAPIClient() error = %v", err)
		}
		wa = c
	}
	return client.NewComposite(ow, wa, client.NewMockProvider(1))
}

// SetupIntegrationService wires a service over live providers, the configured
// cache and an in-memory preference store. Cleanup runs via t.Cleanup.
func SetupIntegrationService(t *testing.T, cfg IntegrationTestConfig) (*service.WeatherService, cache.Cache) {
	t.Helper()
	var reportCache cache.Cache = cache.NewInMemoryCache(time.Hour)
	if cfg.CacheBackend == config.CacheMemcached {
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddr, 500*time.Millisecond, 2, time.Hour)
		if err == nil && mc.Ping() == nil {
			reportCache = mc
			t.Cleanup(func() { _ = mc.Close() })
			t.Logf("using memcached at %s", cfg.MemcachedAddr)
		} else {
			t.Logf("memcached unavailable, using in-memory cache")
		}
	}
	prefs, err := store.Open(context.Background(), store.NewMemoryBackend())
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	svc := service.NewWeatherService(SetupIntegrationProvider(t, cfg), reportCache, prefs, service.Config{
		CacheTTL:     time.Minute,
		StaleTTL:     time.Hour,
		FetchTimeout: 20 * time.Second,
	})
	return svc, reportCache
}
