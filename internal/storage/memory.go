package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type memorySubstrate struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemory creates a process-local substrate. Wrap it with WithQuota to emulate a bounded store.
func NewMemory() Substrate {
	return &memorySubstrate{entries: make(map[string]string)}
}

func (m *memorySubstrate) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

func (m *memorySubstrate) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = value
	return nil
}

func (m *memorySubstrate) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	return nil
}

func (m *memorySubstrate) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memorySubstrate) Usage(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for key, value := range m.entries {
		total += int64(len(key) + len(value))
	}
	return total, nil
}
