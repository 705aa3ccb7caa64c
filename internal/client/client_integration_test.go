//go:build integration

package client_test

import (
	"context"
	"testing"
	"time"

	"github.com/kjstillabower/weather-forecast-app/internal/testhelpers"
)

func TestIntegration_Providers(t *testing.T) {
	cfg := testhelpers.GetIntegrationConfig(t)
	p := testhelpers.SetupIntegrationProvider(t, cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	current, err := p.GetCurrentWeather(ctx, "Tokyo")
	if err != nil {
		t.Fatalf("GetCurrentWeather() error = %v", err)
	}
	if current.Name == "" || current.Timestamp.IsZero() {
		t.Errorf("current = %+v", current)
	}

	astro, err := p.GetAstronomy(ctx, "Tokyo", time.Now().UTC().Format(time.DateOnly))
	if err != nil {
		t.Fatalf("GetAstronomy() error = %v", err)
	}
	if astro.Sunrise == "" || astro.MoonPhase == "" {
		t.Errorf("astronomy = %+v", astro)
	}
}
