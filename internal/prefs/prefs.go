// Package prefs persists the user's selected model.
package prefs

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

// Key is the storage key of the selected model url.
const Key = "selected_model"

// Store reads and writes the selected model. Get returns "" when unset.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, url string) error
	Clear(ctx context.Context) error
	Close() error
}

// Open picks a store for path: SQLite for .db/.sqlite/.sqlite3, a JSON
// file otherwise, and memory when path is empty.
func Open(path string) (Store, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return OpenSQLite(path)
	default:
		return NewFileStore(path)
	}
}

// MemoryStore keeps the value for the life of the process.
type MemoryStore struct {
	mu  sync.Mutex
	val string
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) Get(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.val, nil
}

func (m *MemoryStore) Set(_ context.Context, url string) error {
	m.mu.Lock()
	m.val = url
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error { return m.Set(ctx, "") }

func (m *MemoryStore) Close() error { return nil }
