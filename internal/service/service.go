// Package service assembles weather reports and applies searches and favorite
// changes to the preference store.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kjstillabower/weather-forecast-app/internal/cache"
	"github.com/kjstillabower/weather-forecast-app/internal/client"
	"github.com/kjstillabower/weather-forecast-app/internal/format"
	"github.com/kjstillabower/weather-forecast-app/internal/models"
	"github.com/kjstillabower/weather-forecast-app/internal/observability"
	"github.com/kjstillabower/weather-forecast-app/internal/validation"
)

var (
	ErrEmptyQuery       = errors.New("empty search query")
	ErrInvalidCity      = errors.New("invalid city")
	ErrStoreUnavailable = errors.New("preference store unavailable")
)

// PreferenceStore is the subset of store.Preferences the service uses.
type PreferenceStore interface {
	AddFavorite(ctx context.Context, city string) (bool, error)
	RemoveFavorite(ctx context.Context, city string) error
	AddRecent(ctx context.Context, city string) error
	IsFavorite(city string) bool
	Favorites() []string
	Recent() []string
}

// Config tunes report caching and city validation.
type Config struct {
	CacheTTL     time.Duration
	StaleTTL     time.Duration // 0 disables the stale fallback
	FetchTimeout time.Duration // bounds one shared upstream fetch
	MinCityLen   int
	MaxCityLen   int
}

// WeatherService serves reports cache-aside. Concurrent misses for one city share
// a single upstream fetch.
type WeatherService struct {
	provider client.Provider
	cache    cache.Cache
	prefs    PreferenceStore
	cfg      Config
	group    singleflight.Group
	now      func() time.Time
}

func NewWeatherService(provider client.Provider, c cache.Cache, prefs PreferenceStore, cfg Config) *WeatherService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 10 * time.Second
	}
	if cfg.MinCityLen <= 0 {
		cfg.MinCityLen = 1
	}
	if cfg.MaxCityLen <= 0 {
		cfg.MaxCityLen = 100
	}
	return &WeatherService{provider: provider, cache: c, prefs: prefs, cfg: cfg, now: time.Now}
}

// GetReport returns the weather report for city. Current conditions are
// required; forecast, history and astronomy are left empty when their provider
// fails. If upstream fails and a report fetched within StaleTTL is cached, it
// is returned with Stale set.
func (s *WeatherService) GetReport(ctx context.Context, city string) (models.Report, error) {
	name, err := s.validCity(city)
	if err != nil {
		return models.Report{}, err
	}
	key := normalizeCity(name)
	logger := observability.LoggerFromContext(ctx)
	start := time.Now()

	getStart := time.Now()
	cached, ok, err := s.cache.Get(ctx, key)
	getDuration := time.Since(getStart).Seconds()
	switch {
	case err != nil:
		observability.CacheErrorsTotal.WithLabelValues("get", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "error").Observe(getDuration)
		logger.Warn("cache get failed", zap.String("city", key), zap.Error(err))
	case ok:
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "success").Observe(getDuration)
		observability.CacheHitsTotal.WithLabelValues("report").Inc()
		logger.Debug("report served", zap.String("city", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		return cached, nil
	default:
		observability.CacheOperationDurationSeconds.WithLabelValues("get", "miss").Observe(getDuration)
	}
	observability.CacheMissesTotal.WithLabelValues("report").Inc()
	logger.Debug("cache miss, fetching upstream", zap.String("city", key))

	ch := s.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.FetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, name)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return models.Report{}, ctx.Err()
	case res = <-ch:
	}
	if res.Shared {
		observability.CoalescedRequestsTotal.Inc()
	}

	if res.Err != nil {
		if stale, ok := s.staleReport(ctx, key); ok {
			logger.Info("serving stale report",
				zap.String("city", key),
				zap.Duration("age", s.now().Sub(stale.FetchedAt)),
				zap.Error(res.Err))
			return stale, nil
		}
		return models.Report{}, fmt.Errorf("fetch report for %s: %w", key, res.Err)
	}
	report := res.Val.(models.Report)

	setStart := time.Now()
	if err := s.cache.Set(ctx, key, report, s.cfg.CacheTTL); err != nil {
		observability.CacheErrorsTotal.WithLabelValues("set", categorizeCacheError(err)).Inc()
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "error").Observe(time.Since(setStart).Seconds())
		logger.Warn("cache set failed", zap.String("city", key), zap.Error(err))
	} else {
		observability.CacheOperationDurationSeconds.WithLabelValues("set", "success").Observe(time.Since(setStart).Seconds())
	}
	logger.Debug("report served", zap.String("city", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	return report, nil
}

func (s *WeatherService) fetch(ctx context.Context, city string) (models.Report, error) {
	logger := observability.LoggerFromContext(ctx)
	current, err := s.provider.GetCurrentWeather(ctx, city)
	if err != nil {
		return models.Report{}, err
	}
	now := s.now().UTC()
	report := models.Report{
		City:       current.Name,
		Current:    current,
		Forecast:   []models.ForecastData{},
		Historical: []models.HistoricalData{},
		FetchedAt:  now,
	}
	if report.City == "" {
		report.City = format.CityName(city)
	}

	// The remaining parts are best-effort; goroutines never return errors.
	var g errgroup.Group
	g.Go(func() error {
		forecast, err := s.provider.GetForecast(ctx, city)
		if err != nil {
			logger.Warn("forecast unavailable", zap.String("city", city), zap.Error(err))
			return nil
		}
		report.Forecast = forecast
		return nil
	})
	g.Go(func() error {
		history, err := s.provider.GetWeeklyHistory(ctx, city)
		if err != nil {
			logger.Warn("history unavailable", zap.String("city", city), zap.Error(err))
			return nil
		}
		report.Historical = history
		return nil
	})
	g.Go(func() error {
		astro, err := s.provider.GetAstronomy(ctx, city, now.Format(time.DateOnly))
		if err != nil {
			logger.Warn("astronomy unavailable", zap.String("city", city), zap.Error(err))
			return nil
		}
		report.Astronomy = &astro
		return nil
	})
	_ = g.Wait()
	return report, nil
}

func (s *WeatherService) staleReport(ctx context.Context, key string) (models.Report, bool) {
	if s.cfg.StaleTTL <= 0 {
		return models.Report{}, false
	}
	stale, ok, err := s.cache.GetStale(ctx, key, s.cfg.StaleTTL)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get_stale", categorizeCacheError(err)).Inc()
		return models.Report{}, false
	}
	if !ok {
		return models.Report{}, false
	}
	observability.StaleCacheServesTotal.Inc()
	stale.Stale = true
	return stale, true
}

// Comparison is two reports side by side.
type Comparison struct {
	A models.Report `json:"a"`
	B models.Report `json:"b"`
}

// Compare fetches both reports concurrently. Either failing fails the comparison.
func (s *WeatherService) Compare(ctx context.Context, a, b string) (Comparison, error) {
	var out Comparison
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.GetReport(gctx, a)
		out.A = r
		return err
	})
	g.Go(func() error {
		r, err := s.GetReport(gctx, b)
		out.B = r
		return err
	})
	if err := g.Wait(); err != nil {
		return Comparison{}, err
	}
	return out, nil
}

// Search validates query, records it as the most recent search and returns the
// display name. An empty query changes nothing and returns ErrEmptyQuery.
func (s *WeatherService) Search(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		return "", ErrEmptyQuery
	}
	name, err := s.validCity(query)
	if err != nil {
		return "", err
	}
	city := format.CityName(name)
	if err := s.prefs.AddRecent(ctx, city); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	observability.RecordSearch(city)
	observability.LoggerFromContext(ctx).Info("search recorded", zap.String("city", city))
	return city, nil
}

// AddFavorite adds city to favorites. Reports whether the list changed.
func (s *WeatherService) AddFavorite(ctx context.Context, city string) (bool, error) {
	name, err := s.favoriteName(city)
	if err != nil {
		return false, err
	}
	added, err := s.prefs.AddFavorite(ctx, name)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return added, nil
}

func (s *WeatherService) RemoveFavorite(ctx context.Context, city string) error {
	name, err := s.favoriteName(city)
	if err != nil {
		return err
	}
	if err := s.prefs.RemoveFavorite(ctx, name); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// ToggleFavorite flips city's favorite status and returns the new status.
func (s *WeatherService) ToggleFavorite(ctx context.Context, city string) (bool, error) {
	name, err := s.favoriteName(city)
	if err != nil {
		return false, err
	}
	if s.prefs.IsFavorite(name) {
		if err := s.RemoveFavorite(ctx, name); err != nil {
			return true, err
		}
		return false, nil
	}
	if _, err := s.AddFavorite(ctx, name); err != nil {
		return false, err
	}
	return true, nil
}

func (s *WeatherService) IsFavorite(city string) bool {
	name, err := s.favoriteName(city)
	if err != nil {
		return false
	}
	return s.prefs.IsFavorite(name)
}

func (s *WeatherService) Favorites() []string { return s.prefs.Favorites() }
func (s *WeatherService) Recent() []string    { return s.prefs.Recent() }

func (s *WeatherService) favoriteName(city string) (string, error) {
	name, err := s.validCity(city)
	if err != nil {
		return "", err
	}
	return format.CityName(name), nil
}

func (s *WeatherService) validCity(city string) (string, error) {
	name, err := validation.ValidateCity(city, s.cfg.MinCityLen, s.cfg.MaxCityLen)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidCity, err)
	}
	return name, nil
}

// categorizeCacheError returns a stable label for cache error metrics.
func categorizeCacheError(err error) string {
	errStr := err.Error()
	switch {
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(errStr, "timeout"):
		return "timeout"
	case strings.Contains(errStr, "connection") || strings.Contains(errStr, "network"):
		return "connection"
	}
	return "unknown"
}

// normalizeCity is the cache key for a city.
func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
