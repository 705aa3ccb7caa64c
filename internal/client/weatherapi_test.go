package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"
)

func fixedNow() time.Time { return time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC) }

func newTestWeatherAPI(t *testing.T, h http.HandlerFunc) *WeatherAPIClient {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	c, err := NewWeatherAPIClient("wa-test-key-12345", server.URL, time.Second, fastRetry)
	if err != nil {
		t.Fatalf("NewWeatherAPIClient() error = %v", err)
	}
	c.now = fixedNow
	return c
}

func TestWeatherAPIClient_GetHistoricalWeather(t *testing.T) {
	c := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/history.json" || q.Get("key") != "wa-test-key-12345" || q.Get("q") != "Rome" || q.Get("dt") != "2024-03-09" {
			t.Errorf("unexpected request %s?%s", r.URL.Path, r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"forecast":{"forecastday":[{"date":"2024-03-09","day":{
			"maxtemp_c":16.2,"mintemp_c":7.1,"avgtemp_c":11.4,
			"condition":{"text":"Sunny","icon":"//cdn.weatherapi.com/113.png"}}}]}}`))
	})
	got, err := c.GetHistoricalWeather(context.Background(), "Rome", "2024-03-09")
	if err != nil {
		t.Fatalf("GetHistoricalWeather() error = %v", err)
	}
	if got.Date != "2024-03-09" || got.MaxTemp != 16.2 || got.MinTemp != 7.1 || got.AvgTemp != 11.4 || got.Condition != "Sunny" {
		t.Errorf("got %+v", got)
	}
}

func TestWeatherAPIClient_GetHistoricalWeather_EmptyDay(t *testing.T) {
	c := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"forecast":{"forecastday":[]}}`))
	})
	_, err := c.GetHistoricalWeather(context.Background(), "Rome", "2024-03-09")
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Errorf("error = %v, want ErrUpstreamFailure", err)
	}
}

func TestWeatherAPIClient_GetAstronomy_IlluminationFormats(t *testing.T) {
	for name, raw := range map[string]string{"string": `"32"`, "number": `32`} {
		t.Run(name, func(t *testing.T) {
			c := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/astronomy.json" {
					t.Errorf("path = %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(`{"astronomy":{"astro":{"sunrise":"06:24 AM","sunset":"08:15 PM",
					"moonrise":"10:30 PM","moonset":"08:45 AM","moon_phase":"Waxing Crescent","moon_illumination":` + raw + `}}}`))
			})
			got, err := c.GetAstronomy(context.Background(), "Rome", "2024-03-10")
			if err != nil {
				t.Fatalf("GetAstronomy() error = %v", err)
			}
			if got.MoonIllumination != 32 || got.MoonPhase != "Waxing Crescent" || got.Sunrise != "06:24 AM" {
				t.Errorf("got %+v", got)
			}
		})
	}
}

func TestWeatherAPIClient_GetCurrentWeather(t *testing.T) {
	c := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"location":{"name":"Rome","country":"Italy"},"current":{
			"temp_c":21,"feelslike_c":22,"humidity":40,"wind_kph":9,"pressure_mb":1018,
			"vis_km":10,"uv":6,"condition":{"text":"Sunny","icon":"113.png"}}}`))
	})
	got, err := c.GetCurrentWeather(context.Background(), "rome")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	if got.Name != "Rome" || got.UVIndex != 6 || got.Visibility != 10000 || got.WindSpeed != 9 {
		t.Errorf("got %+v", got)
	}
}

// TestWeatherAPIClient_GetWeeklyHistory verifies seven concurrent requests for
// the days before today, returned newest first.
func TestWeatherAPIClient_GetWeeklyHistory(t *testing.T) {
	var mu sync.Mutex
	var requested []string
	c := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		dt := r.URL.Query().Get("dt")
		mu.Lock()
		requested = append(requested, dt)
		mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"forecast": map[string]any{"forecastday": []map[string]any{{"date": dt, "day": map[string]any{"avgtemp_c": 10}}}},
		})
	})
	got, err := c.GetWeeklyHistory(context.Background(), "Rome")
	if err != nil {
		t.Fatalf("GetWeeklyHistory() error = %v", err)
	}
	want := []string{"2024-03-09", "2024-03-08", "2024-03-07", "2024-03-06", "2024-03-05", "2024-03-04", "2024-03-03"}
	var dates []string
	for _, d := range got {
		dates = append(dates, d.Date)
	}
	if !slices.Equal(dates, want) {
		t.Errorf("dates = %v, want %v", dates, want)
	}
	if len(requested) != HistoryDays {
		t.Errorf("requests = %d, want %d", len(requested), HistoryDays)
	}
}

func TestWeatherAPIClient_GetWeeklyHistory_OneDayFails(t *testing.T) {
	c := newTestWeatherAPI(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("dt") == "2024-03-05" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":1003,"message":"Parameter q is missing."}}`))
			return
		}
		_, _ = w.Write([]byte(`{"forecast":{"forecastday":[{"date":"x"}]}}`))
	})
	if _, err := c.GetWeeklyHistory(context.Background(), "Rome"); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestWeatherAPIError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"no location", 400, `{"error":{"code":1006,"message":"No matching location found."}}`, ErrLocationNotFound},
		{"bad request", 400, `{"error":{"code":1003,"message":"Parameter q is missing."}}`, ErrInvalidRequest},
		{"bad key", 401, `{"error":{"code":2006,"message":"API key is invalid."}}`, ErrInvalidAPIKey},
		{"disabled key", 403, `{"error":{"code":2008,"message":"API key has been disabled."}}`, ErrInvalidAPIKey},
		{"quota", 429, ``, ErrRateLimited},
		{"server", 500, `not json`, ErrUpstreamFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := weatherAPIError(tt.status, []byte(tt.body)); !errors.Is(err, tt.want) {
				t.Errorf("weatherAPIError() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPastDates_CrossesMonth(t *testing.T) {
	got := PastDates(time.Date(2024, 3, 2, 23, 0, 0, 0, time.UTC), 3)
	want := []string{"2024-03-01", "2024-02-29", "2024-02-28"}
	if !slices.Equal(got, want) {
		t.Errorf("PastDates() = %v, want %v", got, want)
	}
}
