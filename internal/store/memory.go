package store

import (
	"context"
	"slices"
	"sync"
)

// MemoryBackend keeps lists in process memory. Nothing survives a restart.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string][]string
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]string)}
}

func (m *MemoryBackend) Load(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.data[key]), nil
}

func (m *MemoryBackend) Save(ctx context.Context, key string, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = slices.Clone(values)
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
