package memory

import (
	"context"
	"sort"
	"sync"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

// TotalStressStore is an in-memory implementation of storage.TotalStressStore.
type TotalStressStore struct {
	mu   sync.RWMutex
	data map[totalKey]*domain.TotalStressPoint
}

type totalKey struct {
	runID    string
	reporter string
	sample   int
}

// NewTotalStressStore creates a new in-memory total stress store.
func NewTotalStressStore() *TotalStressStore {
	return &TotalStressStore{
		data: make(map[totalKey]*domain.TotalStressPoint),
	}
}

// InsertBulk adds multiple points. Fails entire batch on duplicate.
func (s *TotalStressStore) InsertBulk(_ context.Context, points []*domain.TotalStressPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[totalKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" || p.Reporter == "" || p.Sample < 0 {
			return storage.ErrInvalidInput
		}
		key := totalKey{p.RunID, p.Reporter, p.Sample}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, p := range points {
		pointCopy := *p
		s.data[totalKey{p.RunID, p.Reporter, p.Sample}] = &pointCopy
	}
	return nil
}

// GetByRun retrieves all points of a run, ordered by reporter, sample ASC.
func (s *TotalStressStore) GetByRun(_ context.Context, runID string) ([]*domain.TotalStressPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TotalStressPoint
	for _, p := range s.data {
		if p.RunID == runID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Reporter != result[j].Reporter {
			return result[i].Reporter < result[j].Reporter
		}
		return result[i].Sample < result[j].Sample
	})
	return result, nil
}

var _ storage.TotalStressStore = (*TotalStressStore)(nil)
