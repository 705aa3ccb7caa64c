package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Cache and store backends accepted by validate.
const (
	CacheInMemory  = "in_memory"
	CacheMemcached = "memcached"

	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
)

// Config holds service configuration loaded from YAML, secrets and env.
type Config struct {
	ServerPort string
	Version    string

	OpenWeatherAPIKey  string
	OpenWeatherURL     string
	WeatherAPIKey      string
	WeatherAPIURL      string
	UpstreamTimeout    time.Duration
	ValidateKeyOnStart bool

	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration

	BreakerFailureThreshold int
	BreakerSuccessThreshold int
	BreakerTimeout          time.Duration

	RequestTimeout time.Duration
	FetchTimeout   time.Duration
	RateLimitRPS   int
	RateLimitBurst int

	CacheBackend          string // "in_memory" or "memcached"
	CacheTTL              time.Duration
	CacheStaleTTL         time.Duration
	CacheRetain           time.Duration
	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	StoreBackend string // "memory", "file" or "sqlite"
	StorePath    string

	MinCityLen int
	MaxCityLen int

	WarmCities   []string
	WarmInterval time.Duration

	TrackedCities []string

	HealthWindow            time.Duration
	HealthDegradedErrorPct  int
	HealthOverloadDenialPct int
	HealthMinRequests       int
	HealthCheckTimeout      time.Duration

	ShutdownTimeout time.Duration
	DrainTimeout    time.Duration
}

type fileConfig struct {
	Version string `yaml:"version"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Providers struct {
		Timeout            string `yaml:"timeout"`
		ValidateKeyOnStart bool   `yaml:"validate_key_on_start"`
		OpenWeather        struct {
			URL string `yaml:"url"`
		} `yaml:"openweather"`
		WeatherAPI struct {
			URL string `yaml:"url"`
		} `yaml:"weatherapi"`
	} `yaml:"providers"`

	Request struct {
		Timeout      string `yaml:"timeout"`
		FetchTimeout string `yaml:"fetch_timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend   string `yaml:"backend"`
		TTL       string `yaml:"ttl"`
		StaleTTL  string `yaml:"stale_ttl"`
		Retain    string `yaml:"retain"`
		Memcached struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Warm struct {
			Cities   []string `yaml:"cities"`
			Interval string   `yaml:"interval"`
		} `yaml:"warm"`
	} `yaml:"cache"`

	Store struct {
		Backend string `yaml:"backend"`
		Path    string `yaml:"path"`
	} `yaml:"store"`

	Validation struct {
		MinCityLen int `yaml:"min_city_len"`
		MaxCityLen int `yaml:"max_city_len"`
	} `yaml:"validation"`

	Reliability struct {
		RetryMaxAttempts        int    `yaml:"retry_max_attempts"`
		RetryBaseDelay          string `yaml:"retry_base_delay"`
		RetryMaxDelay           string `yaml:"retry_max_delay"`
		RateLimitRPS            int    `yaml:"rate_limit_rps"`
		RateLimitBurst          int    `yaml:"rate_limit_burst"`
		BreakerFailureThreshold int    `yaml:"breaker_failure_threshold"`
		BreakerSuccessThreshold int    `yaml:"breaker_success_threshold"`
		BreakerTimeout          string `yaml:"breaker_timeout"`
	} `yaml:"reliability"`

	Health struct {
		Window            string `yaml:"window"`
		DegradedErrorPct  int    `yaml:"degraded_error_pct"`
		OverloadDenialPct int    `yaml:"overload_denial_pct"`
		MinRequests       int    `yaml:"min_requests"`
		CheckTimeout      string `yaml:"check_timeout"`
	} `yaml:"health"`

	Shutdown struct {
		Timeout      string `yaml:"timeout"`
		DrainTimeout string `yaml:"drain_timeout"`
	} `yaml:"shutdown"`

	Metrics struct {
		TrackedCities []string `yaml:"tracked_cities"`
	} `yaml:"metrics"`
}

type secretsFile struct {
	OpenWeatherAPIKey string `yaml:"openweather_api_key"`
	WeatherAPIKey     string `yaml:"weatherapi_key"`
}

// envOverrides are applied last; empty values leave the file setting alone.
type envOverrides struct {
	OpenWeatherAPIKey string `env:"OPENWEATHER_API_KEY"`
	WeatherAPIKey     string `env:"WEATHERAPI_KEY"`
	CacheBackend      string `env:"CACHE_BACKEND"`
	MemcachedAddrs    string `env:"MEMCACHED_ADDRS"`
	StoreBackend      string `env:"STORE_BACKEND"`
	StorePath         string `env:"STORE_PATH"`
	ServerPort        string `env:"SERVER_PORT"`
}

// Load reads config/{ENV_NAME}.yaml (default dev) and config/secrets.yaml from the
// working directory, then applies environment overrides. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadDir(filepath.Join(cwd, "config"))
}

// LoadDir is Load with an explicit config directory.
func LoadDir(dir string) (*Config, error) {
	name := os.Getenv("ENV_NAME")
	if name == "" {
		name = "dev"
	}
	configPath := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	sec, err := readSecrets(filepath.Join(dir, "secrets.yaml"))
	if err != nil {
		return nil, err
	}
	var ov envOverrides
	if err := env.Parse(&ov); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := fromFile(fc)
	cfg.OpenWeatherAPIKey = firstNonEmpty(ov.OpenWeatherAPIKey, sec.OpenWeatherAPIKey)
	cfg.WeatherAPIKey = firstNonEmpty(ov.WeatherAPIKey, sec.WeatherAPIKey)
	cfg.ServerPort = firstNonEmpty(ov.ServerPort, cfg.ServerPort)
	cfg.CacheBackend = normalizeKind(firstNonEmpty(ov.CacheBackend, cfg.CacheBackend))
	cfg.MemcachedAddrs = firstNonEmpty(strings.TrimSpace(ov.MemcachedAddrs), cfg.MemcachedAddrs)
	cfg.StoreBackend = normalizeKind(firstNonEmpty(ov.StoreBackend, cfg.StoreBackend))
	cfg.StorePath = firstNonEmpty(ov.StorePath, cfg.StorePath)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readSecrets(path string) (secretsFile, error) {
	var sec secretsFile
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sec, nil
		}
		return sec, fmt.Errorf("read secrets file: %w", err)
	}
	if err := yaml.Unmarshal(data, &sec); err != nil {
		return sec, fmt.Errorf("parse secrets file: %w", err)
	}
	return sec, nil
}

func fromFile(fc fileConfig) *Config {
	cfg := &Config{
		ServerPort: firstNonEmpty(fc.Server.Port, "8080"),
		Version:    firstNonEmpty(fc.Version, "dev"),

		OpenWeatherURL:     strings.TrimSpace(fc.Providers.OpenWeather.URL),
		WeatherAPIURL:      strings.TrimSpace(fc.Providers.WeatherAPI.URL),
		UpstreamTimeout:    parseDurationOrZero(fc.Providers.Timeout, 5*time.Second),
		ValidateKeyOnStart: fc.Providers.ValidateKeyOnStart,

		RetryAttempts:  positiveOr(fc.Reliability.RetryMaxAttempts, 3),
		RetryBaseDelay: parseDuration(fc.Reliability.RetryBaseDelay, 100*time.Millisecond),
		RetryMaxDelay:  parseDuration(fc.Reliability.RetryMaxDelay, 2*time.Second),
		RateLimitRPS:   positiveOr(fc.Reliability.RateLimitRPS, 100),
		RateLimitBurst: positiveOr(fc.Reliability.RateLimitBurst, 250),

		BreakerFailureThreshold: positiveOr(fc.Reliability.BreakerFailureThreshold, 5),
		BreakerSuccessThreshold: positiveOr(fc.Reliability.BreakerSuccessThreshold, 2),
		BreakerTimeout:          parseDuration(fc.Reliability.BreakerTimeout, 30*time.Second),

		RequestTimeout: parseDuration(fc.Request.Timeout, 15*time.Second),
		FetchTimeout:   parseDuration(fc.Request.FetchTimeout, 10*time.Second),

		CacheBackend:          firstNonEmpty(fc.Cache.Backend, CacheInMemory),
		CacheTTL:              parseDuration(fc.Cache.TTL, 10*time.Minute),
		CacheStaleTTL:         parseDuration(fc.Cache.StaleTTL, time.Hour),
		CacheRetain:           parseDuration(fc.Cache.Retain, time.Hour),
		MemcachedAddrs:        firstNonEmpty(strings.TrimSpace(fc.Cache.Memcached.Addrs), "localhost:11211"),
		MemcachedTimeout:      parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond),
		MemcachedMaxIdleConns: positiveOr(fc.Cache.Memcached.MaxIdleConns, 2),

		StoreBackend: firstNonEmpty(fc.Store.Backend, StoreFile),
		StorePath:    firstNonEmpty(fc.Store.Path, "data/preferences.json"),

		MinCityLen: positiveOr(fc.Validation.MinCityLen, 1),
		MaxCityLen: positiveOr(fc.Validation.MaxCityLen, 100),

		WarmCities:   fc.Cache.Warm.Cities,
		WarmInterval: parseDurationOrZero(fc.Cache.Warm.Interval, 0),

		TrackedCities: fc.Metrics.TrackedCities,

		HealthWindow:            parseDuration(fc.Health.Window, time.Minute),
		HealthDegradedErrorPct:  positiveOr(fc.Health.DegradedErrorPct, 20),
		HealthOverloadDenialPct: positiveOr(fc.Health.OverloadDenialPct, 50),
		HealthMinRequests:       positiveOr(fc.Health.MinRequests, 10),
		HealthCheckTimeout:      parseDuration(fc.Health.CheckTimeout, time.Second),

		ShutdownTimeout: parseDuration(fc.Shutdown.Timeout, 30*time.Second),
		DrainTimeout:    parseDuration(fc.Shutdown.DrainTimeout, 10*time.Second),
	}
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func normalizeKind(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func positiveOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// parseDuration returns defaultVal when s is empty, malformed or not positive.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero returns defaultVal on empty or malformed input. Zero and
// negative durations are returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate checks enumerations and timeout ordering. RequestTimeout is raised
// above UpstreamTimeout when it is not already.
func validate(cfg *Config) error {
	if cfg.UpstreamTimeout <= 0 {
		return fmt.Errorf("providers.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		cfg.RequestTimeout = cfg.UpstreamTimeout + time.Second
	}
	if cfg.MinCityLen > cfg.MaxCityLen {
		return fmt.Errorf("validation.min_city_len %d exceeds max_city_len %d", cfg.MinCityLen, cfg.MaxCityLen)
	}
	switch cfg.CacheBackend {
	case CacheInMemory, CacheMemcached:
	default:
		return fmt.Errorf("cache.backend must be in_memory or memcached, got %q", cfg.CacheBackend)
	}
	switch cfg.StoreBackend {
	case StoreMemory, StoreFile, StoreSQLite:
	default:
		return fmt.Errorf("store.backend must be memory, file or sqlite, got %q", cfg.StoreBackend)
	}
	if cfg.StoreBackend != StoreMemory && cfg.StorePath == "" {
		return fmt.Errorf("store.path is required for the %s backend", cfg.StoreBackend)
	}
	return nil
}
