package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kjstillabower/weather-forecast-app/internal/circuitbreaker"
	"github.com/kjstillabower/weather-forecast-app/internal/models"
)

const DefaultWeatherAPIURL = "https://api.weatherapi.com/v1"

// HistoryDays is how many past days GetWeeklyHistory covers.
const HistoryDays = 7

// weatherAPINoLocation is WeatherAPI's error code for an unmatched query.
const weatherAPINoLocation = 1006

// WeatherAPIClient serves history and astronomy from weatherapi.com.
type WeatherAPIClient struct {
	api *apiClient
	now func() time.Time
}

func NewWeatherAPIClient(apiKey, baseURL string, timeout time.Duration, retry RetryPolicy) (*WeatherAPIClient, error) {
	if baseURL == "" {
		baseURL = DefaultWeatherAPIURL
	}
	api, err := newAPIClient("weatherapi", apiKey, baseURL, timeout, retry, weatherAPIError)
	if err != nil {
		return nil, err
	}
	return &WeatherAPIClient{api: api, now: time.Now}, nil
}

func (c *WeatherAPIClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.api.breaker = cb
}

// flexFloat accepts a JSON number or a quoted number.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type waCondition struct {
	Text string `json:"text"`
	Icon string `json:"icon"`
}

type weatherAPICurrentResponse struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		LastUpdatedEpoch int64       `json:"last_updated_epoch"`
		TempC            float64     `json:"temp_c"`
		FeelsLikeC       float64     `json:"feelslike_c"`
		Humidity         float64     `json:"humidity"`
		WindKph          float64     `json:"wind_kph"`
		PressureMb       float64     `json:"pressure_mb"`
		VisKm            float64     `json:"vis_km"`
		UV               float64     `json:"uv"`
		Condition        waCondition `json:"condition"`
	} `json:"current"`
}

type weatherAPIHistoryResponse struct {
	Forecast struct {
		ForecastDay []struct {
			Date string `json:"date"`
			Day  struct {
				MaxTempC  float64     `json:"maxtemp_c"`
				MinTempC  float64     `json:"mintemp_c"`
				AvgTempC  float64     `json:"avgtemp_c"`
				Condition waCondition `json:"condition"`
			} `json:"day"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

type weatherAPIAstronomyResponse struct {
	Astronomy struct {
		Astro struct {
			Sunrise          string    `json:"sunrise"`
			Sunset           string    `json:"sunset"`
			Moonrise         string    `json:"moonrise"`
			Moonset          string    `json:"moonset"`
			MoonPhase        string    `json:"moon_phase"`
			MoonIllumination flexFloat `json:"moon_illumination"`
		} `json:"astro"`
	} `json:"astronomy"`
}

type weatherAPIErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetCurrentWeather is the WeatherAPI rendition of current conditions. It carries the UV index,
// which OpenWeatherMap's /weather endpoint does not.
func (c *WeatherAPIClient) GetCurrentWeather(ctx context.Context, city string) (models.WeatherData, error) {
	var resp weatherAPICurrentResponse
	if err := c.api.getJSON(ctx, "/current.json", "key", queryParams(city, ""), &resp); err != nil {
		return models.WeatherData{}, fmt.Errorf("fetch current weather: %w", err)
	}
	ts := c.now().UTC()
	if resp.Current.LastUpdatedEpoch > 0 {
		ts = time.Unix(resp.Current.LastUpdatedEpoch, 0).UTC()
	}
	name := resp.Location.Name
	if name == "" {
		name = city
	}
	return models.WeatherData{
		Name:        name,
		Country:     resp.Location.Country,
		Temp:        resp.Current.TempC,
		Description: resp.Current.Condition.Text,
		Icon:        resp.Current.Condition.Icon,
		Humidity:    resp.Current.Humidity,
		WindSpeed:   resp.Current.WindKph,
		FeelsLike:   resp.Current.FeelsLikeC,
		Pressure:    resp.Current.PressureMb,
		Visibility:  resp.Current.VisKm * 1000,
		UVIndex:     resp.Current.UV,
		Timestamp:   ts,
	}, nil
}

// GetHistoricalWeather returns the day summary for date (YYYY-MM-DD).
func (c *WeatherAPIClient) GetHistoricalWeather(ctx context.Context, city, date string) (models.HistoricalData, error) {
	var resp weatherAPIHistoryResponse
	if err := c.api.getJSON(ctx, "/history.json", "key", queryParams(city, date), &resp); err != nil {
		return models.HistoricalData{}, fmt.Errorf("fetch historical data: %w", err)
	}
	if len(resp.Forecast.ForecastDay) == 0 {
		return models.HistoricalData{}, fmt.Errorf("fetch historical data: %w: no day in response", ErrUpstreamFailure)
	}
	day := resp.Forecast.ForecastDay[0]
	d := day.Date
	if d == "" {
		d = date
	}
	return models.HistoricalData{
		Date:      d,
		MaxTemp:   day.Day.MaxTempC,
		MinTemp:   day.Day.MinTempC,
		AvgTemp:   day.Day.AvgTempC,
		Condition: day.Day.Condition.Text,
		Icon:      day.Day.Condition.Icon,
	}, nil
}

func (c *WeatherAPIClient) GetAstronomy(ctx context.Context, city, date string) (models.AstronomyData, error) {
	var resp weatherAPIAstronomyResponse
	if err := c.api.getJSON(ctx, "/astronomy.json", "key", queryParams(city, date), &resp); err != nil {
		return models.AstronomyData{}, fmt.Errorf("fetch astronomy data: %w", err)
	}
	a := resp.Astronomy.Astro
	return models.AstronomyData{
		Sunrise:          a.Sunrise,
		Sunset:           a.Sunset,
		Moonrise:         a.Moonrise,
		Moonset:          a.Moonset,
		MoonPhase:        a.MoonPhase,
		MoonIllumination: float64(a.MoonIllumination),
	}, nil
}

// GetWeeklyHistory fetches the HistoryDays days before today concurrently, newest
// first. Any failed day fails the whole call.
func (c *WeatherAPIClient) GetWeeklyHistory(ctx context.Context, city string) ([]models.HistoricalData, error) {
	dates := PastDates(c.now(), HistoryDays)
	out := make([]models.HistoricalData, len(dates))
	g, gctx := errgroup.WithContext(ctx)
	for i, date := range dates {
		g.Go(func() error {
			day, err := c.GetHistoricalWeather(gctx, city, date)
			if err != nil {
				return err
			}
			out[i] = day
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch weekly history: %w", err)
	}
	return out, nil
}

// PastDates returns the n calendar dates (YYYY-MM-DD, UTC) before now, newest first.
func PastDates(now time.Time, n int) []string {
	now = now.UTC()
	out := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, now.AddDate(0, 0, -i).Format(time.DateOnly))
	}
	return out
}

func queryParams(city, date string) url.Values {
	params := url.Values{}
	params.Set("q", city)
	if date != "" {
		params.Set("dt", date)
	}
	return params
}

func weatherAPIError(status int, body []byte) error {
	var e weatherAPIErrorBody
	_ = json.Unmarshal(body, &e)
	msg := e.Error.Message
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", status)
	}
	switch {
	case status == http.StatusBadRequest && e.Error.Code == weatherAPINoLocation:
		return fmt.Errorf("%w: %s", ErrLocationNotFound, msg)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidRequest, msg)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, msg)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrLocationNotFound, msg)
	}
	return fmt.Errorf("%w: %s", ErrUpstreamFailure, msg)
}
