package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-forecast-app/internal/models"
)

type mockReportFetcher struct {
	mu      sync.Mutex
	fetched []string
	fail    map[string]error
}

func (m *mockReportFetcher) GetReport(ctx context.Context, city string) (models.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetched = append(m.fetched, city)
	if err := m.fail[city]; err != nil {
		return models.Report{}, err
	}
	return models.Report{City: city}, nil
}

func TestWarmer_Warm_Success(t *testing.T) {
	fetcher := &mockReportFetcher{}
	core, logs := observer.New(zap.InfoLevel)
	w := NewWarmer(fetcher, zap.New(core))

	if err := w.Warm(context.Background(), []string{"London", "Tokyo"}); err != nil {
		t.Fatalf("Warm() error = %v", err)
	}
	if len(fetcher.fetched) != 2 {
		t.Errorf("fetched %v, want 2 cities", fetcher.fetched)
	}
	if logs.FilterMessage("cache warming complete").Len() != 1 {
		t.Error("expected completion log")
	}
}

func TestWarmer_Warm_EmptyCities(t *testing.T) {
	w := NewWarmer(&mockReportFetcher{}, nil)
	if err := w.Warm(context.Background(), nil); err != nil {
		t.Fatalf("Warm(nil) error = %v", err)
	}
}

func TestWarmer_Warm_JoinsFailures(t *testing.T) {
	errDown := errors.New("api down")
	fetcher := &mockReportFetcher{fail: map[string]error{"Paris": errDown}}
	w := NewWarmer(fetcher, nil)

	err := w.Warm(context.Background(), []string{"Paris", "Rome"})
	if !errors.Is(err, errDown) {
		t.Fatalf("Warm() error = %v, want errDown", err)
	}
	if !strings.Contains(err.Error(), "warm Paris") {
		t.Errorf("error %q does not name the city", err)
	}
}

func TestWarmer_WarmPeriodic_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetcher := &mockReportFetcher{}
	w := NewWarmer(fetcher, nil)

	done := make(chan error, 1)
	go func() { done <- w.WarmPeriodic(ctx, []string{"Sydney"}, 5*time.Millisecond) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("WarmPeriodic() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("WarmPeriodic did not return after cancel")
	}
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	if len(fetcher.fetched) < 2 {
		t.Errorf("fetched %d times, want initial plus periodic", len(fetcher.fetched))
	}
}
