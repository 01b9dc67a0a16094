package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries for the life of the process.
type MemoryBackend[T any] struct {
	mu      sync.RWMutex
	entries map[string]Entry[T]
}

// NewMemoryBackend creates an empty in-process backend.
func NewMemoryBackend[T any]() *MemoryBackend[T] {
	return &MemoryBackend[T]{entries: make(map[string]Entry[T])}
}

// Get implements Backend.
func (m *MemoryBackend[T]) Get(_ context.Context, key string) (Entry[T], bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

// Set implements Backend. Entries are replaced whole.
func (m *MemoryBackend[T]) Set(_ context.Context, key string, e Entry[T], _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}
