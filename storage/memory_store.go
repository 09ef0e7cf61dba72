package storage

import (
	"context"
	"sync"
	"time"

	"realestatesync/models"
)

// MemoryStore is an in-memory PropertyStore used in tests and dev mode.
// All reads hand out deep copies so callers cannot mutate stored state.
type MemoryStore struct {
	mu    sync.RWMutex
	props map[string]*models.Property
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{props: make(map[string]*models.Property)}
}

func (m *MemoryStore) Create(_ context.Context, p *models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	m.props[p.ID] = p.Clone()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.props[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*models.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Property, 0, len(m.props))
	for _, p := range m.props {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, p *models.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.props[p.ID]
	if !ok {
		return ErrNotFound
	}
	cp := p.Clone()
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	m.props[p.ID] = cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.props[id]; !ok {
		return ErrNotFound
	}
	delete(m.props, id)
	return nil
}

func (m *MemoryStore) UpdateDistributions(_ context.Context, id string, merge map[string]models.DistributionStatus, published bool) (*models.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.props[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Distributions == nil {
		p.Distributions = make(map[string]models.DistributionStatus)
	}
	for target, status := range merge {
		p.Distributions[target] = status
	}
	if published {
		p.Published = true
	}
	p.UpdatedAt = time.Now()
	return p.Clone(), nil
}
