package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
)

// FileBackend stores every key in one JSON document on disk, e.g.
//
//	{"weather-favorites":["London"],"weather-recent":["Tokyo","London"]}
//
// Each Save rewrites the whole document through a temp file and rename.
type FileBackend struct {
	mu   sync.Mutex
	path string
	data map[string][]string
}

// OpenFileBackend reads path if it exists. A missing file is an empty store.
func OpenFileBackend(path string) (*FileBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("store path is required")
	}
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	fb := &FileBackend{path: path, data: make(map[string][]string)}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fb, nil
		}
		return nil, fmt.Errorf("read store file: %w", err)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return fb, nil
	}
	if err := json.Unmarshal(raw, &fb.data); err != nil {
		return nil, fmt.Errorf("parse store file: %w", err)
	}
	return fb, nil
}

func (f *FileBackend) Load(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.data[key]), nil
}

func (f *FileBackend) Save(ctx context.Context, key string, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	next := make(map[string][]string, len(f.data)+1)
	for k, v := range f.data {
		next[k] = v
	}
	if values == nil {
		values = []string{}
	}
	next[key] = slices.Clone(values)

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := writeFileAtomic(f.path, raw); err != nil {
		return err
	}
	f.data = next
	return nil
}

func (f *FileBackend) Close() error { return nil }

func writeFileAtomic(path string, raw []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace store file: %w", err)
	}
	return nil
}
