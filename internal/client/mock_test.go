package client

import (
	"context"
	"testing"
)

func TestMockProvider_Current(t *testing.T) {
	m := NewMockProvider(1)
	got, err := m.GetCurrentWeather(context.Background(), "Lisbon")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	if got.Name != "Lisbon" || got.Temp != 18 || got.FeelsLike != 20 || got.Humidity != 65 || got.Pressure != 1013 {
		t.Errorf("got %+v", got)
	}
}

func TestMockProvider_Forecast(t *testing.T) {
	m := NewMockProvider(42)
	m.now = fixedNow
	got, err := m.GetForecast(context.Background(), "Lisbon")
	if err != nil {
		t.Fatalf("GetForecast() error = %v", err)
	}
	if len(got) != MockForecastPoints {
		t.Fatalf("len = %d, want %d", len(got), MockForecastPoints)
	}
	for i, f := range got {
		if want := fixedNow().Unix() + int64(i)*10800; f.DT != want {
			t.Fatalf("point %d DT = %d, want %d", i, f.DT, want)
		}
		if f.Pop < 0 || f.Pop > 0.8 || len(f.Weather) != 1 {
			t.Fatalf("point %d = %+v", i, f)
		}
	}
}

func TestMockProvider_ForecastMinBelowMax(t *testing.T) {
	for seed := int64(1); seed <= 50; seed++ {
		got, err := NewMockProvider(seed).GetForecast(context.Background(), "Lisbon")
		if err != nil {
			t.Fatalf("GetForecast() error = %v", err)
		}
		for i, f := range got {
			if f.Temp.Min > f.Temp.Max {
				t.Fatalf("seed %d point %d: min %.1f > max %.1f", seed, i, f.Temp.Min, f.Temp.Max)
			}
		}
	}
}

func TestMockProvider_HistoryAndAstronomy(t *testing.T) {
	m := NewMockProvider(7)
	m.now = fixedNow
	history, err := m.GetWeeklyHistory(context.Background(), "Lisbon")
	if err != nil || len(history) != HistoryDays {
		t.Fatalf("GetWeeklyHistory() = %d days, %v", len(history), err)
	}
	if history[0].Date != "2024-03-09" {
		t.Errorf("newest date = %s", history[0].Date)
	}
	for _, d := range history {
		if d.MinTemp > d.MaxTemp {
			t.Errorf("%s min %v > max %v", d.Date, d.MinTemp, d.MaxTemp)
		}
	}
	astro, _ := m.GetAstronomy(context.Background(), "Lisbon", "2024-03-10")
	if astro.MoonPhase != "Waxing Crescent" || astro.MoonIllumination != 32 {
		t.Errorf("astro = %+v", astro)
	}
}

func TestMockProvider_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMockProvider(1).GetForecast(ctx, "x"); err == nil {
		t.Error("GetForecast() with canceled ctx error = nil")
	}
}

func TestComposite_FallsBackToMock(t *testing.T) {
	mock := NewMockProvider(1)
	c := NewComposite(nil, nil, mock)
	got, err := c.GetCurrentWeather(context.Background(), "Quito")
	if err != nil || got.Name != "Quito" || got.Temp != 18 {
		t.Errorf("GetCurrentWeather() = %+v, %v", got, err)
	}
	if c.history != HistorySource(mock) {
		t.Error("history source is not the mock")
	}
}
