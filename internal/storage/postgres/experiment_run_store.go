package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

// ExperimentRunStore implements storage.ExperimentRunStore using PostgreSQL.
type ExperimentRunStore struct {
	pool *Pool
}

// NewExperimentRunStore creates a new ExperimentRunStore.
func NewExperimentRunStore(pool *Pool) *ExperimentRunStore {
	return &ExperimentRunStore{pool: pool}
}

var _ storage.ExperimentRunStore = (*ExperimentRunStore)(nil)

const runColumns = `
	run_id, experiment, config_hash, response_hash, gcm, product,
	reporters, partners, samples, started_at, finished_at, status, cache_hit`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *ExperimentRunStore) Insert(ctx context.Context, r *domain.ExperimentRun) error {
	if r == nil || r.RunID == "" || r.Experiment == "" {
		return storage.ErrInvalidInput
	}

	query := `INSERT INTO experiment_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.Experiment, r.ConfigHash, r.ResponseHash, r.GCM, string(r.Product),
		nonNil(r.Reporters), nonNil(r.Partners), r.Samples,
		r.StartedAt, r.FinishedAt, r.Status, r.CacheHit,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert experiment run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *ExperimentRunStore) GetByID(ctx context.Context, runID string) (*domain.ExperimentRun, error) {
	query := `SELECT ` + runColumns + ` FROM experiment_runs WHERE run_id = $1`

	run, err := scanRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get experiment run: %w", err)
	}
	return run, nil
}

// GetByExperiment retrieves all runs of an experiment, ordered by started_at ASC.
func (s *ExperimentRunStore) GetByExperiment(ctx context.Context, experiment string) ([]*domain.ExperimentRun, error) {
	query := `SELECT ` + runColumns + ` FROM experiment_runs
		WHERE experiment = $1
		ORDER BY started_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query, experiment)
	if err != nil {
		return nil, fmt.Errorf("query experiment runs: %w", err)
	}
	defer rows.Close()

	var result []*domain.ExperimentRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan experiment run: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate experiment runs: %w", err)
	}
	return result, nil
}

// GetLatest retrieves the most recent completed run of an experiment.
func (s *ExperimentRunStore) GetLatest(ctx context.Context, experiment string) (*domain.ExperimentRun, error) {
	query := `SELECT ` + runColumns + ` FROM experiment_runs
		WHERE experiment = $1 AND status = $2
		ORDER BY started_at DESC, run_id DESC
		LIMIT 1`

	run, err := scanRun(s.pool.QueryRow(ctx, query, experiment, domain.RunStatusCompleted))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest experiment run: %w", err)
	}
	return run, nil
}

func scanRun(row pgx.Row) (*domain.ExperimentRun, error) {
	var r domain.ExperimentRun
	var product string
	err := row.Scan(
		&r.RunID, &r.Experiment, &r.ConfigHash, &r.ResponseHash, &r.GCM, &product,
		&r.Reporters, &r.Partners, &r.Samples,
		&r.StartedAt, &r.FinishedAt, &r.Status, &r.CacheHit,
	)
	if err != nil {
		return nil, err
	}
	r.Product = domain.Product(product)
	return &r, nil
}

// text[] columns are NOT NULL
func nonNil(codes []string) []string {
	if codes == nil {
		return []string{}
	}
	return codes
}
