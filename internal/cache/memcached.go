package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/kjstillabower/weather-forecast-app/internal/models"
)

const (
	keyPrefix      = "report:"
	staleKeyPrefix = "report:stale:"

	// maxKeyLen is memcached's key length limit in bytes.
	maxKeyLen = 250

	// memcached treats larger relative expirations as unix timestamps.
	maxRelativeExp = 30 * 24 * 60 * 60
)

// MemcachedCache stores each report twice: once under its TTL and once under
// TTL plus the stale retention window for GetStale.
type MemcachedCache struct {
	client *memcache.Client
	retain time.Duration
	now    func() time.Time
}

// NewMemcachedCache creates a MemcachedCache. addrs is a comma-separated list
// (e.g. "localhost:11211" or "host1:11211,host2:11211"). timeout and maxIdleConns
// use the client defaults when zero.
func NewMemcachedCache(addrs string, timeout time.Duration, maxIdleConns int, retain time.Duration) (*MemcachedCache, error) {
	servers := parseAddrs(addrs)
	if len(servers) == 0 {
		servers = []string{"localhost:11211"}
	}
	client := memcache.New(servers...)
	if timeout > 0 {
		client.Timeout = timeout
	}
	if maxIdleConns > 0 {
		client.MaxIdleConns = maxIdleConns
	}
	return &MemcachedCache{client: client, retain: retain, now: time.Now}, nil
}

func parseAddrs(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

// itemKey maps a city key onto memcached's key alphabet (no spaces or control
// characters). Keys over maxKeyLen bytes are truncated and suffixed with a sha1
// of the full key.
func itemKey(prefix, k string) string {
	key := prefix + strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return '_'
		}
		return r
	}, k)
	if len(key) <= maxKeyLen {
		return key
	}
	sum := sha1.Sum([]byte(key))
	suffix := ":" + hex.EncodeToString(sum[:])
	head := key[:maxKeyLen-len(suffix)]
	for !utf8.ValidString(head) {
		head = head[:len(head)-1]
	}
	return head + suffix
}

func (c *MemcachedCache) Get(ctx context.Context, key string) (models.Report, bool, error) {
	return c.get(ctx, itemKey(keyPrefix, key))
}

func (c *MemcachedCache) GetStale(ctx context.Context, key string, maxAge time.Duration) (models.Report, bool, error) {
	report, ok, err := c.get(ctx, itemKey(staleKeyPrefix, key))
	if err != nil || !ok {
		return models.Report{}, false, err
	}
	if c.now().Sub(report.FetchedAt) > maxAge {
		return models.Report{}, false, nil
	}
	return report, true, nil
}

func (c *MemcachedCache) get(ctx context.Context, key string) (models.Report, bool, error) {
	if ctx.Err() != nil {
		return models.Report{}, false, ctx.Err()
	}
	item, err := c.client.Get(key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return models.Report{}, false, nil
		}
		return models.Report{}, false, err
	}
	var report models.Report
	if err := json.Unmarshal(item.Value, &report); err != nil {
		return models.Report{}, false, err
	}
	return report, true, nil
}

// Set writes the live copy and, when a retention window is configured, the stale copy.
func (c *MemcachedCache) Set(ctx context.Context, key string, value models.Report, ttl time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := c.client.Set(&memcache.Item{Key: itemKey(keyPrefix, key), Value: raw, Expiration: expiration(ttl)}); err != nil {
		return err
	}
	if c.retain <= 0 {
		return nil
	}
	return c.client.Set(&memcache.Item{Key: itemKey(staleKeyPrefix, key), Value: raw, Expiration: expiration(ttl + c.retain)})
}

func expiration(ttl time.Duration) int32 {
	sec := int64(ttl.Seconds())
	if sec <= 0 || sec > maxRelativeExp {
		return 3600
	}
	return int32(sec)
}

// Ping checks that memcached is reachable. Used by /health.
func (c *MemcachedCache) Ping() error {
	return c.client.Ping()
}

func (c *MemcachedCache) Close() error {
	return c.client.Close()
}
