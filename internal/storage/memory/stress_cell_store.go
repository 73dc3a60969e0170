package memory

import (
	"context"
	"sort"
	"sync"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

// StressCellStore is an in-memory implementation of storage.StressCellStore.
type StressCellStore struct {
	mu   sync.RWMutex
	data map[cellKey]*domain.StressCell
}

type cellKey struct {
	runID    string
	reporter string
	partner  string
	sample   int
}

// NewStressCellStore creates a new in-memory stress cell store.
func NewStressCellStore() *StressCellStore {
	return &StressCellStore{
		data: make(map[cellKey]*domain.StressCell),
	}
}

// InsertBulk adds multiple cells. Fails entire batch on duplicate.
func (s *StressCellStore) InsertBulk(_ context.Context, cells []*domain.StressCell) error {
	if len(cells) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[cellKey]struct{}, len(cells))
	for _, c := range cells {
		if c == nil || c.RunID == "" || c.Reporter == "" || c.Partner == "" || c.Sample < 0 {
			return storage.ErrInvalidInput
		}
		key := cellKey{c.RunID, c.Reporter, c.Partner, c.Sample}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, c := range cells {
		cellCopy := *c
		s.data[cellKey{c.RunID, c.Reporter, c.Partner, c.Sample}] = &cellCopy
	}
	return nil
}

// GetByRun retrieves all cells of a run, ordered by reporter, partner, sample ASC.
func (s *StressCellStore) GetByRun(_ context.Context, runID string) ([]*domain.StressCell, error) {
	return s.filter(func(c *domain.StressCell) bool { return c.RunID == runID }), nil
}

// GetByReporter retrieves the cells of one reporter, ordered by partner, sample ASC.
func (s *StressCellStore) GetByReporter(_ context.Context, runID, reporter string) ([]*domain.StressCell, error) {
	return s.filter(func(c *domain.StressCell) bool { return c.RunID == runID && c.Reporter == reporter }), nil
}

func (s *StressCellStore) filter(keep func(*domain.StressCell) bool) []*domain.StressCell {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.StressCell
	for _, c := range s.data {
		if keep(c) {
			cellCopy := *c
			result = append(result, &cellCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Reporter != b.Reporter {
			return a.Reporter < b.Reporter
		}
		if a.Partner != b.Partner {
			return a.Partner < b.Partner
		}
		return a.Sample < b.Sample
	})
	return result
}

var _ storage.StressCellStore = (*StressCellStore)(nil)
