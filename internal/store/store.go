// Package store keeps the user's favorite cities and recent searches and
// persists both lists through a Backend.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/kjstillabower/weather-forecast-app/internal/observability"
)

// Fixed keys the two lists are persisted under.
const (
	FavoritesKey = "weather-favorites"
	RecentKey    = "weather-recent"
)

// MaxRecent caps the recent-search list.
const MaxRecent = 5

// Backend is a string-list key-value store. Load returns an empty list for a missing key.
type Backend interface {
	Load(ctx context.Context, key string) ([]string, error)
	Save(ctx context.Context, key string, values []string) error
	Close() error
}

// Preferences holds favorites (unique) and recent searches (most-recent-first,
// unique, at most MaxRecent). State changes only after the backend accepts the write.
type Preferences struct {
	mu        sync.RWMutex
	backend   Backend
	favorites []string
	recent    []string
}

// Open rehydrates both lists from backend.
func Open(ctx context.Context, backend Backend) (*Preferences, error) {
	favorites, err := backend.Load(ctx, FavoritesKey)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", FavoritesKey, err)
	}
	recent, err := backend.Load(ctx, RecentKey)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", RecentKey, err)
	}
	p := &Preferences{
		backend:   backend,
		favorites: dedupe(favorites),
		recent:    capRecent(dedupe(recent)),
	}
	observability.SetPreferenceCounts(len(p.favorites), len(p.recent))
	return p, nil
}

// AddFavorite appends city if absent and persists. Adding a present city is a
// no-op and does not touch the backend. Reports whether the list changed.
func (p *Preferences) AddFavorite(ctx context.Context, city string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if slices.Contains(p.favorites, city) {
		return false, nil
	}
	next := append(slices.Clip(p.favorites), city)
	if err := p.save(ctx, FavoritesKey, next, "add_favorite"); err != nil {
		return false, err
	}
	p.favorites = next
	observability.SetPreferenceCounts(len(p.favorites), len(p.recent))
	return true, nil
}

// RemoveFavorite drops city from favorites and persists, whether or not it was present.
func (p *Preferences) RemoveFavorite(ctx context.Context, city string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := make([]string, 0, len(p.favorites))
	for _, f := range p.favorites {
		if f != city {
			next = append(next, f)
		}
	}
	if err := p.save(ctx, FavoritesKey, next, "remove_favorite"); err != nil {
		return err
	}
	p.favorites = next
	observability.SetPreferenceCounts(len(p.favorites), len(p.recent))
	return nil
}

// AddRecent moves city to the front of the recent list, drops its earlier
// occurrence, truncates to MaxRecent and persists.
func (p *Preferences) AddRecent(ctx context.Context, city string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := make([]string, 0, MaxRecent)
	next = append(next, city)
	for _, r := range p.recent {
		if r != city {
			next = append(next, r)
		}
	}
	next = capRecent(next)
	if err := p.save(ctx, RecentKey, next, "add_recent"); err != nil {
		return err
	}
	p.recent = next
	observability.SetPreferenceCounts(len(p.favorites), len(p.recent))
	return nil
}

func (p *Preferences) IsFavorite(city string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Contains(p.favorites, city)
}

// Favorites returns a copy of the favorites list.
func (p *Preferences) Favorites() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.favorites)
}

// Recent returns a copy of the recent-search list, most recent first.
func (p *Preferences) Recent() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.recent)
}

// Close closes the backend.
func (p *Preferences) Close() error {
	return p.backend.Close()
}

// save must be called with mu held.
func (p *Preferences) save(ctx context.Context, key string, values []string, op string) error {
	if err := p.backend.Save(ctx, key, values); err != nil {
		observability.StoreOperationsTotal.WithLabelValues(op, "error").Inc()
		return fmt.Errorf("save %s: %w", key, err)
	}
	observability.StoreOperationsTotal.WithLabelValues(op, "success").Inc()
	return nil
}

// dedupe keeps the first occurrence of each value.
func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func capRecent(values []string) []string {
	if len(values) > MaxRecent {
		return values[:MaxRecent]
	}
	return values
}
