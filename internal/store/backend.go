package store

import "fmt"

// Backend kinds accepted by NewBackend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// NewBackend opens the backend named by kind. path is ignored for memory.
func NewBackend(kind, path string) (Backend, error) {
	switch kind {
	case BackendMemory:
		return NewMemoryBackend(), nil
	case BackendFile:
		return OpenFileBackend(path)
	case BackendSQLite:
		return OpenSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("unknown store backend %q", kind)
	}
}
