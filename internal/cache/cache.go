// Package cache stores assembled weather reports for a TTL and keeps expired
// reports around for a stale window so they can be served when upstream fails.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/weather-forecast-app/internal/models"
)

// Cache is implemented by the in-memory and memcached backends.
// GetStale ignores the TTL and returns a report fetched within maxAge.
type Cache interface {
	Get(ctx context.Context, key string) (models.Report, bool, error)
	Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error
	GetStale(ctx context.Context, key string, maxAge time.Duration) (models.Report, bool, error)
}

// InMemoryCache is a mutex-guarded map. Entries live for TTL plus the stale
// retention window and are removed on access after that.
type InMemoryCache struct {
	mu     sync.Mutex
	data   map[string]cacheEntry
	retain time.Duration
	now    func() time.Time
}

type cacheEntry struct {
	value     models.Report
	expiresAt time.Time
}

// NewInMemoryCache returns an empty cache keeping expired entries for retain.
func NewInMemoryCache(retain time.Duration) *InMemoryCache {
	return &InMemoryCache{
		data:   make(map[string]cacheEntry),
		retain: retain,
		now:    time.Now,
	}
}

// Get returns (report, true, nil) for a live entry and (zero, false, nil) otherwise.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.lookup(key)
	if !ok || c.now().After(entry.expiresAt) {
		return models.Report{}, false, nil
	}
	return entry.value, true, nil
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *InMemoryCache) GetStale(ctx context.Context, key string, maxAge time.Duration) (models.Report, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.lookup(key)
	if !ok || c.now().Sub(entry.value.FetchedAt) > maxAge {
		return models.Report{}, false, nil
	}
	return entry.value, true, nil
}

// Len reports the number of retained entries.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// lookup returns the entry for key, dropping it once past the retention window.
// Caller holds c.mu.
func (c *InMemoryCache) lookup(key string) (cacheEntry, bool) {
	entry, ok := c.data[key]
	if !ok {
		return cacheEntry{}, false
	}
	if c.now().After(entry.expiresAt.Add(c.retain)) {
		delete(c.data, key)
		return cacheEntry{}, false
	}
	return entry, true
}
