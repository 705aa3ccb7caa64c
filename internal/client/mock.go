package client

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/kjstillabower/weather-forecast-app/internal/models"
)

// MockForecastPoints is the number of 3-hourly points a mock forecast carries (5 days).
const MockForecastPoints = 40

var mockConditions = []string{"Clear", "Clouds", "Rain"}

// MockProvider serves fixed current conditions and randomized forecast and
// history. It stands in for a provider whose API key is not configured.
type MockProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewMockProvider returns a MockProvider. A zero seed uses the current time.
func NewMockProvider(seed int64) *MockProvider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockProvider{rng: rand.New(rand.NewSource(seed)), now: time.Now}
}

func (m *MockProvider) GetCurrentWeather(ctx context.Context, city string) (models.WeatherData, error) {
	if err := ctx.Err(); err != nil {
		return models.WeatherData{}, err
	}
	return models.WeatherData{
		Name:        city,
		Country:     "GB",
		Temp:        18,
		Description: "partly cloudy",
		Icon:        "02d",
		Humidity:    65,
		WindSpeed:   12,
		FeelsLike:   20,
		Pressure:    1013,
		Visibility:  10000,
		UVIndex:     3,
		Timestamp:   m.now().UTC(),
	}, nil
}

func (m *MockProvider) GetForecast(ctx context.Context, _ string) ([]models.ForecastData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	start := m.now().Unix()
	out := make([]models.ForecastData, 0, MockForecastPoints)
	for i := 0; i < MockForecastPoints; i++ {
		temp := 15 + m.rng.Float64()*10
		minT := 12 + m.rng.Float64()*8
		out = append(out, models.ForecastData{
			DT: start + int64(i)*3*3600,
			Temp: models.TempRange{
				Day:   temp,
				Night: temp - 4,
				Min:   minT,
				Max:   minT + 2 + m.rng.Float64()*8,
			},
			Weather: []models.Condition{{
				Main:        mockConditions[m.rng.Intn(len(mockConditions))],
				Description: "mock weather",
				Icon:        "01d",
			}},
			Humidity:  50 + m.rng.Float64()*40,
			WindSpeed: 5 + m.rng.Float64()*15,
			Pop:       m.rng.Float64() * 0.8,
		})
	}
	return out, nil
}

func (m *MockProvider) GetWeeklyHistory(ctx context.Context, _ string) ([]models.HistoricalData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	dates := PastDates(m.now(), HistoryDays)
	out := make([]models.HistoricalData, 0, len(dates))
	for _, d := range dates {
		minT := 8 + m.rng.Float64()*6
		maxT := minT + 4 + m.rng.Float64()*8
		cond := mockConditions[m.rng.Intn(len(mockConditions))]
		out = append(out, models.HistoricalData{
			Date:      d,
			MaxTemp:   maxT,
			MinTemp:   minT,
			AvgTemp:   (minT + maxT) / 2,
			Condition: cond,
		})
	}
	return out, nil
}

func (m *MockProvider) GetAstronomy(ctx context.Context, _, _ string) (models.AstronomyData, error) {
	if err := ctx.Err(); err != nil {
		return models.AstronomyData{}, err
	}
	return models.AstronomyData{
		Sunrise:          "06:24 AM",
		Sunset:           "08:15 PM",
		Moonrise:         "10:30 PM",
		Moonset:          "08:45 AM",
		MoonPhase:        "Waxing Crescent",
		MoonIllumination: 32,
	}, nil
}
