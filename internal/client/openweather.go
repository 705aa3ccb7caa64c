package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kjstillabower/weather-forecast-app/internal/circuitbreaker"
	"github.com/kjstillabower/weather-forecast-app/internal/models"
)

// DefaultOpenWeatherURL is the OpenWeatherMap 2.5 API root.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/2.5"

// metersPerSecondToKmh converts OpenWeatherMap metric wind speed to km/h.
const metersPerSecondToKmh = 3.6

// OpenWeatherClient serves current conditions and the 5-day/3-hour forecast.
type OpenWeatherClient struct {
	api *apiClient
	now func() time.Time
}

func NewOpenWeatherClient(apiKey, baseURL string, timeout time.Duration, retry RetryPolicy) (*OpenWeatherClient, error) {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}
	api, err := newAPIClient("openweather", apiKey, baseURL, timeout, retry, openWeatherError)
	if err != nil {
		return nil, err
	}
	return &OpenWeatherClient{api: api, now: time.Now}, nil
}

// SetCircuitBreaker wraps every upstream attempt in cb.
func (c *OpenWeatherClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.api.breaker = cb
}

type owCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type openWeatherResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	DT   int64  `json:"dt"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  float64 `json:"humidity"`
		Pressure  float64 `json:"pressure"`
	} `json:"main"`
	Weather []owCondition `json:"weather"`
	Wind    struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Visibility float64 `json:"visibility"`
	Coord      struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
}

type openWeatherForecastResponse struct {
	List []struct {
		DT   int64 `json:"dt"`
		Main struct {
			Temp     float64 `json:"temp"`
			TempMin  float64 `json:"temp_min"`
			TempMax  float64 `json:"temp_max"`
			Humidity float64 `json:"humidity"`
		} `json:"main"`
		Weather []owCondition `json:"weather"`
		Wind    struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

func (c *OpenWeatherClient) GetCurrentWeather(ctx context.Context, city string) (models.WeatherData, error) {
	var resp openWeatherResponse
	if err := c.api.getJSON(ctx, "/weather", "appid", cityParams(city), &resp); err != nil {
		return models.WeatherData{}, fmt.Errorf("fetch current weather: %w", err)
	}
	return c.mapCurrent(resp, city), nil
}

func (c *OpenWeatherClient) GetForecast(ctx context.Context, city string) ([]models.ForecastData, error) {
	var resp openWeatherForecastResponse
	if err := c.api.getJSON(ctx, "/forecast", "appid", cityParams(city), &resp); err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	out := make([]models.ForecastData, 0, len(resp.List))
	for _, item := range resp.List {
		out = append(out, models.ForecastData{
			DT: item.DT,
			Temp: models.TempRange{
				Day:   item.Main.Temp,
				Night: item.Main.Temp,
				Min:   item.Main.TempMin,
				Max:   item.Main.TempMax,
			},
			Weather:   mapConditions(item.Weather),
			Humidity:  item.Main.Humidity,
			WindSpeed: item.Wind.Speed * metersPerSecondToKmh,
			Pop:       item.Pop,
		})
	}
	return out, nil
}

// ValidateAPIKey makes one current-weather call for a known city.
func (c *OpenWeatherClient) ValidateAPIKey(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	var resp openWeatherResponse
	if err := c.api.call(ctx, "/weather", "appid", cityParams("London"), &resp); err != nil {
		return fmt.Errorf("validate openweather key: %w", err)
	}
	return nil
}

func (c *OpenWeatherClient) mapCurrent(resp openWeatherResponse, city string) models.WeatherData {
	description := ""
	icon := ""
	if len(resp.Weather) > 0 {
		description = resp.Weather[0].Main
		if resp.Weather[0].Description != "" {
			description = resp.Weather[0].Description
		}
		icon = resp.Weather[0].Icon
	}
	name := resp.Name
	if name == "" {
		name = city
	}
	ts := c.now()
	if resp.DT > 0 {
		ts = time.Unix(resp.DT, 0).UTC()
	}
	return models.WeatherData{
		ID:          resp.ID,
		Name:        name,
		Country:     resp.Sys.Country,
		Temp:        resp.Main.Temp,
		Description: description,
		Icon:        icon,
		Humidity:    resp.Main.Humidity,
		WindSpeed:   resp.Wind.Speed * metersPerSecondToKmh,
		FeelsLike:   resp.Main.FeelsLike,
		Pressure:    resp.Main.Pressure,
		Visibility:  resp.Visibility,
		Timestamp:   ts,
	}
}

func cityParams(city string) url.Values {
	params := url.Values{}
	params.Set("q", city)
	params.Set("units", "metric")
	return params
}

func mapConditions(in []owCondition) []models.Condition {
	out := make([]models.Condition, 0, len(in))
	for _, w := range in {
		out = append(out, models.Condition{Main: w.Main, Description: w.Description, Icon: w.Icon})
	}
	return out
}

func openWeatherError(status int, _ []byte) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: invalid API key", ErrInvalidAPIKey)
	case http.StatusNotFound:
		return fmt.Errorf("%w", ErrLocationNotFound)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidRequest, status)
	}
	return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, status)
}
