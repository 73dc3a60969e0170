package storage

import (
	"context"

	"crop-stress-lab/internal/domain"
)

// ExperimentRunStore provides storage for experiment run records.
// Runs are append-only: a run is written once, after it finished.
type ExperimentRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.ExperimentRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.ExperimentRun, error)

	// GetByExperiment retrieves all runs of an experiment, ordered by started_at ASC.
	GetByExperiment(ctx context.Context, experiment string) ([]*domain.ExperimentRun, error)

	// GetLatest retrieves the most recent completed run of an experiment.
	// Returns ErrNotFound if the experiment has no completed run.
	GetLatest(ctx context.Context, experiment string) (*domain.ExperimentRun, error)
}

// ReporterSummaryStore provides storage for per-reporter scalar metrics.
type ReporterSummaryStore interface {
	// InsertBulk adds the summaries of one or more runs atomically.
	// Fails entire batch on any duplicate (run_id, reporter).
	InsertBulk(ctx context.Context, summaries []*domain.ReporterSummaryRecord) error

	// GetByRun retrieves the summaries of a run, ordered by reporter ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.ReporterSummaryRecord, error)

	// GetByReporter retrieves the summaries of a reporter across runs, ordered by run_id ASC.
	GetByReporter(ctx context.Context, reporter string) ([]*domain.ReporterSummaryRecord, error)
}

// StressCellStore provides storage for per-sample partner stress.
// Only written (reporter, partner) slots are stored.
type StressCellStore interface {
	// InsertBulk adds cells. Fails entire batch on any duplicate
	// (run_id, reporter, partner, sample).
	InsertBulk(ctx context.Context, cells []*domain.StressCell) error

	// GetByRun retrieves all cells of a run, ordered by reporter, partner, sample ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.StressCell, error)

	// GetByReporter retrieves the cells of one reporter, ordered by partner, sample ASC.
	GetByReporter(ctx context.Context, runID, reporter string) ([]*domain.StressCell, error)
}

// TotalStressStore provides storage for per-reporter total stress series.
type TotalStressStore interface {
	// InsertBulk adds points. Fails entire batch on any duplicate
	// (run_id, reporter, sample).
	InsertBulk(ctx context.Context, points []*domain.TotalStressPoint) error

	// GetByRun retrieves all points of a run, ordered by reporter, sample ASC.
	GetByRun(ctx context.Context, runID string) ([]*domain.TotalStressPoint, error)
}

// Stores groups the stores one run is persisted to.
type Stores struct {
	Runs      ExperimentRunStore
	Summaries ReporterSummaryStore
	Cells     StressCellStore
	Totals    TotalStressStore
}

// SaveRun persists a finished run and its bundle. The run record is written
// last so a reader never sees a run without its rows.
func (s Stores) SaveRun(ctx context.Context, run *domain.ExperimentRun, b *domain.StressBundle) error {
	if run == nil || run.RunID == "" || b == nil {
		return ErrInvalidInput
	}
	summaries, cells, totals := b.Flatten(run.RunID)
	if err := s.Summaries.InsertBulk(ctx, summaries); err != nil {
		return err
	}
	if err := s.Cells.InsertBulk(ctx, cells); err != nil {
		return err
	}
	if err := s.Totals.InsertBulk(ctx, totals); err != nil {
		return err
	}
	return s.Runs.Insert(ctx, run)
}

// LoadBundle rebuilds the bundle of a stored run.
func (s Stores) LoadBundle(ctx context.Context, runID string) (*domain.ExperimentRun, *domain.StressBundle, error) {
	run, err := s.Runs.GetByID(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	summaries, err := s.Summaries.GetByRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	cells, err := s.Cells.GetByRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	totals, err := s.Totals.GetByRun(ctx, runID)
	if err != nil {
		return nil, nil, err
	}
	b, err := domain.AssembleBundle(run, summaries, cells, totals)
	if err != nil {
		return nil, nil, err
	}
	return run, b, nil
}
