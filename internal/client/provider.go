package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-forecast-app/internal/models"
	"github.com/kjstillabower/weather-forecast-app/internal/observability"
)

type CurrentSource interface {
	GetCurrentWeather(ctx context.Context, city string) (models.WeatherData, error)
}

type ForecastSource interface {
	GetForecast(ctx context.Context, city string) ([]models.ForecastData, error)
}

type HistorySource interface {
	GetWeeklyHistory(ctx context.Context, city string) ([]models.HistoricalData, error)
}

type AstronomySource interface {
	GetAstronomy(ctx context.Context, city, date string) (models.AstronomyData, error)
}

// Provider is everything the report service needs from upstream.
type Provider interface {
	CurrentSource
	ForecastSource
	HistorySource
	AstronomySource
}

// Composite routes each call to the provider that serves it: OpenWeatherMap for
// current conditions and forecast, WeatherAPI for history, astronomy and the UV
// index. Without an OpenWeatherMap client, WeatherAPI serves current conditions.
// Anything left unserved falls back to the mock.
type Composite struct {
	current   CurrentSource
	uv        CurrentSource // nil when current already carries UV
	forecast  ForecastSource
	history   HistorySource
	astronomy AstronomySource
}

// NewComposite builds a Composite. ow and wa may be nil; mock must not be.
func NewComposite(ow *OpenWeatherClient, wa *WeatherAPIClient, mock *MockProvider) *Composite {
	c := &Composite{current: mock, forecast: mock, history: mock, astronomy: mock}
	if ow != nil {
		c.current, c.forecast = ow, ow
	}
	if wa != nil {
		c.history, c.astronomy = wa, wa
		if ow != nil {
			c.uv = wa
		} else {
			c.current = wa
		}
	}
	return c
}

// GetCurrentWeather fetches current conditions and, when a separate UV source is
// configured, fills UVIndex from it. A failed UV lookup leaves UVIndex at zero.
func (c *Composite) GetCurrentWeather(ctx context.Context, city string) (models.WeatherData, error) {
	data, err := c.current.GetCurrentWeather(ctx, city)
	if err != nil || c.uv == nil {
		return data, err
	}
	extra, err := c.uv.GetCurrentWeather(ctx, city)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("uv index unavailable", zap.String("city", city), zap.Error(err))
		return data, nil
	}
	data.UVIndex = extra.UVIndex
	return data, nil
}

func (c *Composite) GetForecast(ctx context.Context, city string) ([]models.ForecastData, error) {
	return c.forecast.GetForecast(ctx, city)
}

func (c *Composite) GetWeeklyHistory(ctx context.Context, city string) ([]models.HistoricalData, error) {
	return c.history.GetWeeklyHistory(ctx, city)
}

func (c *Composite) GetAstronomy(ctx context.Context, city, date string) (models.AstronomyData, error) {
	return c.astronomy.GetAstronomy(ctx, city, date)
}

var (
	_ Provider = (*Composite)(nil)
	_ Provider = (*MockProvider)(nil)
)
