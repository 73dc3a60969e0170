package memory

import (
	"context"
	"sort"
	"sync"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

// ExperimentRunStore is an in-memory implementation of storage.ExperimentRunStore.
type ExperimentRunStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ExperimentRun // keyed by run_id
}

// NewExperimentRunStore creates a new in-memory run store.
func NewExperimentRunStore() *ExperimentRunStore {
	return &ExperimentRunStore{
		data: make(map[string]*domain.ExperimentRun),
	}
}

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ExperimentRunStore) Insert(_ context.Context, run *domain.ExperimentRun) error {
	if run == nil || run.RunID == "" || run.Experiment == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[run.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[run.RunID] = copyRun(run)
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ExperimentRunStore) GetByID(_ context.Context, runID string) (*domain.ExperimentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyRun(run), nil
}

// GetByExperiment retrieves all runs of an experiment, ordered by started_at ASC.
func (s *ExperimentRunStore) GetByExperiment(_ context.Context, experiment string) ([]*domain.ExperimentRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExperimentRun
	for _, run := range s.data {
		if run.Experiment == experiment {
			result = append(result, copyRun(run))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].StartedAt != result[j].StartedAt {
			return result[i].StartedAt < result[j].StartedAt
		}
		return result[i].RunID < result[j].RunID
	})

	return result, nil
}

// GetLatest retrieves the most recent completed run of an experiment.
func (s *ExperimentRunStore) GetLatest(ctx context.Context, experiment string) (*domain.ExperimentRun, error) {
	runs, _ := s.GetByExperiment(ctx, experiment)
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].Status == domain.RunStatusCompleted {
			return runs[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

func copyRun(run *domain.ExperimentRun) *domain.ExperimentRun {
	c := *run
	c.Reporters = append([]string(nil), run.Reporters...)
	c.Partners = append([]string(nil), run.Partners...)
	return &c
}

var _ storage.ExperimentRunStore = (*ExperimentRunStore)(nil)
