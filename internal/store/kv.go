// Package store persists the playground's client state (the editor text and
// the ordered runner selection) through a small string key/value collaborator.
package store

import (
	"context"
	"sync"

	"github.com/Iron-Ham/pyexpl/internal/errors"
)

// ErrNotFound is returned by KV.Get when a key has no value.
var ErrNotFound = errors.ErrKeyNotFound

// KV is string key/value storage.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryKV is an in-process KV. The zero value is ready to use.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryKV returns a MemoryKV seeded with initial values.
func NewMemoryKV(initial map[string]string) *MemoryKV {
	m := &MemoryKV{values: make(map[string]string, len(initial))}
	for k, v := range initial {
		m.values[k] = v
	}
	return m
}

// Get implements KV.
func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements KV.
func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
	return nil
}
