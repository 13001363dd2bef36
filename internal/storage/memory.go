package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStorage keeps values in a map. Nothing survives the process.
type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory returns an empty in-memory storage.
func NewMemory() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (m *MemoryStorage) Init() error { return nil }

func (m *MemoryStorage) Get(_ context.Context, keys []string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			result[k] = append(json.RawMessage(nil), v...)
		}
	}
	return result, nil
}

func (m *MemoryStorage) Set(_ context.Context, entries map[string]json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range entries {
		m.values[k] = append([]byte(nil), v...)
	}
	return nil
}

func (m *MemoryStorage) Close() error { return nil }
