package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

// ReporterSummaryStore implements storage.ReporterSummaryStore using PostgreSQL.
type ReporterSummaryStore struct {
	pool *Pool
}

// NewReporterSummaryStore creates a new ReporterSummaryStore.
func NewReporterSummaryStore(pool *Pool) *ReporterSummaryStore {
	return &ReporterSummaryStore{pool: pool}
}

var _ storage.ReporterSummaryStore = (*ReporterSummaryStore)(nil)

const summaryColumns = `
	run_id, reporter, import_value, partners,
	corr_local_imports, corr_top_two,
	variance_mean_ratio, variance_ratio, fraction_count_ratio, fraction_percentile_ratio`

// InsertBulk adds multiple summaries atomically. Fails entire batch on any duplicate.
func (s *ReporterSummaryStore) InsertBulk(ctx context.Context, summaries []*domain.ReporterSummaryRecord) error {
	if len(summaries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `INSERT INTO reporter_summaries (` + summaryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	batch := &pgx.Batch{}
	for _, r := range summaries {
		if r == nil || r.RunID == "" || r.Reporter == "" {
			return storage.ErrInvalidInput
		}
		batch.Queue(query,
			r.RunID, r.Reporter, r.ImportValue, r.Partners,
			r.CorrLocalImports, r.CorrTopTwo,
			r.VarianceMeanRatio, r.VarianceRatio, r.FractionCountRatio, r.FractionPercentileRatio,
		)
	}

	br := tx.SendBatch(ctx, batch)
	for range summaries {
		if _, err := br.Exec(); err != nil {
			br.Close()
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert reporter summary in bulk: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRun retrieves the summaries of a run, ordered by reporter ASC.
func (s *ReporterSummaryStore) GetByRun(ctx context.Context, runID string) ([]*domain.ReporterSummaryRecord, error) {
	query := `SELECT ` + summaryColumns + ` FROM reporter_summaries
		WHERE run_id = $1
		ORDER BY reporter ASC`
	return s.query(ctx, query, runID)
}

// GetByReporter retrieves the summaries of a reporter across runs, ordered by run_id ASC.
func (s *ReporterSummaryStore) GetByReporter(ctx context.Context, reporter string) ([]*domain.ReporterSummaryRecord, error) {
	query := `SELECT ` + summaryColumns + ` FROM reporter_summaries
		WHERE reporter = $1
		ORDER BY run_id ASC`
	return s.query(ctx, query, reporter)
}

func (s *ReporterSummaryStore) query(ctx context.Context, query string, arg string) ([]*domain.ReporterSummaryRecord, error) {
	rows, err := s.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query reporter summaries: %w", err)
	}
	defer rows.Close()

	var result []*domain.ReporterSummaryRecord
	for rows.Next() {
		var r domain.ReporterSummaryRecord
		err := rows.Scan(
			&r.RunID, &r.Reporter, &r.ImportValue, &r.Partners,
			&r.CorrLocalImports, &r.CorrTopTwo,
			&r.VarianceMeanRatio, &r.VarianceRatio, &r.FractionCountRatio, &r.FractionPercentileRatio,
		)
		if err != nil {
			return nil, fmt.Errorf("scan reporter summary: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reporter summaries: %w", err)
	}
	return result, nil
}
