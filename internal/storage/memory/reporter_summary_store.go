package memory

import (
	"context"
	"sort"
	"sync"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

// ReporterSummaryStore is an in-memory implementation of storage.ReporterSummaryStore.
type ReporterSummaryStore struct {
	mu   sync.RWMutex
	data map[summaryKey]*domain.ReporterSummaryRecord
}

type summaryKey struct {
	runID    string
	reporter string
}

// NewReporterSummaryStore creates a new in-memory summary store.
func NewReporterSummaryStore() *ReporterSummaryStore {
	return &ReporterSummaryStore{
		data: make(map[summaryKey]*domain.ReporterSummaryRecord),
	}
}

// InsertBulk adds multiple summaries atomically. Fails entire batch on any duplicate.
func (s *ReporterSummaryStore) InsertBulk(_ context.Context, summaries []*domain.ReporterSummaryRecord) error {
	if len(summaries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[summaryKey]struct{}, len(summaries))
	for _, r := range summaries {
		if r == nil || r.RunID == "" || r.Reporter == "" {
			return storage.ErrInvalidInput
		}
		key := summaryKey{r.RunID, r.Reporter}
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range summaries {
		c := *r
		c.TotalStress = nil
		s.data[summaryKey{r.RunID, r.Reporter}] = &c
	}
	return nil
}

// GetByRun retrieves the summaries of a run, ordered by reporter ASC.
func (s *ReporterSummaryStore) GetByRun(_ context.Context, runID string) ([]*domain.ReporterSummaryRecord, error) {
	return s.filter(func(r *domain.ReporterSummaryRecord) bool { return r.RunID == runID }), nil
}

// GetByReporter retrieves the summaries of a reporter across runs, ordered by run_id ASC.
func (s *ReporterSummaryStore) GetByReporter(_ context.Context, reporter string) ([]*domain.ReporterSummaryRecord, error) {
	return s.filter(func(r *domain.ReporterSummaryRecord) bool { return r.Reporter == reporter }), nil
}

func (s *ReporterSummaryStore) filter(keep func(*domain.ReporterSummaryRecord) bool) []*domain.ReporterSummaryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ReporterSummaryRecord
	for _, r := range s.data {
		if keep(r) {
			c := *r
			result = append(result, &c)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].RunID != result[j].RunID {
			return result[i].RunID < result[j].RunID
		}
		return result[i].Reporter < result[j].Reporter
	})
	return result
}

var _ storage.ReporterSummaryStore = (*ReporterSummaryStore)(nil)
