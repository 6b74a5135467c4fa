package session

import (
	"context"
	"sync"
)

// Backend is a string key/value store. Save and Remove must apply all given
// keys atomically; Load omits keys that are not present.
type Backend interface {
	Load(ctx context.Context, keys []string) (map[string]string, error)
	Save(ctx context.Context, values map[string]string) error
	Remove(ctx context.Context, keys []string) error
}

// MemoryBackend is a process-local Backend.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemoryBackend returns an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

// Load implements Backend.
func (m *MemoryBackend) Load(_ context.Context, keys []string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]string, len(keys))
	for _, k := range keys {
		if v, ok := m.data[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Save implements Backend.
func (m *MemoryBackend) Save(_ context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.data[k] = v
	}
	return nil
}

// Remove implements Backend.
func (m *MemoryBackend) Remove(_ context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (m *MemoryBackend) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
