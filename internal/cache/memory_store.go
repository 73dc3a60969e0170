package cache

import (
	"sync"

	"crop-stress-lab/internal/domain"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu        sync.RWMutex
	responses map[Key]*domain.ResponseField
	bundles   map[Key]*domain.StressBundle
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		responses: make(map[Key]*domain.ResponseField),
		bundles:   make(map[Key]*domain.StressBundle),
	}
}

func (s *MemoryStore) LoadResponse(key Key) (*domain.ResponseField, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.responses[key]
	if !ok {
		return nil, ErrMiss
	}
	return r, nil
}

func (s *MemoryStore) SaveResponse(key Key, r *domain.ResponseField) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[key] = r
	return nil
}

func (s *MemoryStore) LoadBundle(key Key) (*domain.StressBundle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bundles[key]
	if !ok {
		return nil, ErrMiss
	}
	return b, nil
}

func (s *MemoryStore) SaveBundle(key Key, b *domain.StressBundle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bundles[key] = b
	return nil
}

// Len returns the number of stored entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.responses) + len(s.bundles)
}

var _ Store = (*MemoryStore)(nil)
