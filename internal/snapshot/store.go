// Package snapshot persists shopping list state across page reloads within
// a bounded freshness window. A Store is a plain keyed byte store; Keeper
// layers the TTL, cache-buster, and decode semantics on top; Writer
// coalesces rapid write-throughs.
package snapshot

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Load for keys with no stored record.
var ErrNotFound = errors.New("snapshot not found")

// Store is the persistence port. Implementations must treat Save as an
// upsert and Clear of a missing key as a no-op.
type Store interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Clear(ctx context.Context, key string) error
}

// MemoryStore is an in-memory Store, used in tests and one-shot CLI runs.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (m *MemoryStore) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *MemoryStore) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}
