package settings

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory settings store used in tests and dev mode.
type MemoryStore struct {
	mu      sync.RWMutex
	configs map[string]Config
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{configs: make(map[string]Config)}
}

func (m *MemoryStore) Get(_ context.Context, target string) (Config, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[target]
	return cfg, ok, nil
}

func (m *MemoryStore) GetAll(_ context.Context) (map[string]Config, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Config, len(m.configs))
	for k, v := range m.configs {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryStore) Upsert(_ context.Context, cfg Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[cfg.Target] = cfg
	return nil
}
