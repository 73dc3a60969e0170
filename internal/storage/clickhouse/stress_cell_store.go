package clickhouse

import (
	"context"
	"fmt"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

// StressCellStore implements storage.StressCellStore using ClickHouse.
type StressCellStore struct {
	conn *Conn
}

// NewStressCellStore creates a new StressCellStore.
func NewStressCellStore(conn *Conn) *StressCellStore {
	return &StressCellStore{conn: conn}
}

var _ storage.StressCellStore = (*StressCellStore)(nil)

type cellKey struct {
	runID    string
	reporter string
	partner  string
	sample   uint32
}

// InsertBulk adds cells. Fails entire batch on duplicate (run_id, reporter, partner, sample).
// MergeTree does not enforce keys, so duplicates are checked before the insert.
func (s *StressCellStore) InsertBulk(ctx context.Context, cells []*domain.StressCell) error {
	if len(cells) == 0 {
		return nil
	}

	seen := make(map[cellKey]struct{}, len(cells))
	for _, c := range cells {
		if c == nil || c.RunID == "" || c.Reporter == "" || c.Partner == "" || c.Sample < 0 {
			return storage.ErrInvalidInput
		}
		k := cellKey{c.RunID, c.Reporter, c.Partner, uint32(c.Sample)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	existing, err := s.existingKeys(ctx, runIDs(cells, func(c *domain.StressCell) string { return c.RunID }))
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	for k := range seen {
		if _, exists := existing[k]; exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO stress_cells (run_id, reporter, partner, sample, traded, unweighted)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, c := range cells {
		if err := batch.Append(c.RunID, c.Reporter, c.Partner, uint32(c.Sample), c.Traded, c.Unweighted); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves all cells of a run, ordered by reporter, partner, sample ASC.
func (s *StressCellStore) GetByRun(ctx context.Context, runID string) ([]*domain.StressCell, error) {
	query := `
		SELECT run_id, reporter, partner, sample, traded, unweighted
		FROM stress_cells FINAL
		WHERE run_id = ?
		ORDER BY reporter ASC, partner ASC, sample ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query stress cells by run: %w", err)
	}
	defer rows.Close()

	return scanStressCells(rows)
}

// GetByReporter retrieves the cells of one reporter, ordered by partner, sample ASC.
func (s *StressCellStore) GetByReporter(ctx context.Context, runID, reporter string) ([]*domain.StressCell, error) {
	query := `
		SELECT run_id, reporter, partner, sample, traded, unweighted
		FROM stress_cells FINAL
		WHERE run_id = ? AND reporter = ?
		ORDER BY partner ASC, sample ASC
	`

	rows, err := s.conn.Query(ctx, query, runID, reporter)
	if err != nil {
		return nil, fmt.Errorf("query stress cells by reporter: %w", err)
	}
	defer rows.Close()

	return scanStressCells(rows)
}

func (s *StressCellStore) existingKeys(ctx context.Context, runs []string) (map[cellKey]struct{}, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT run_id, reporter, partner, sample FROM stress_cells
		WHERE run_id IN (?)
	`, runs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[cellKey]struct{})
	for rows.Next() {
		var k cellKey
		if err := rows.Scan(&k.runID, &k.reporter, &k.partner, &k.sample); err != nil {
			return nil, err
		}
		keys[k] = struct{}{}
	}
	return keys, rows.Err()
}

func scanStressCells(rows chRows) ([]*domain.StressCell, error) {
	var cells []*domain.StressCell

	for rows.Next() {
		var c domain.StressCell
		var sample uint32
		if err := rows.Scan(&c.RunID, &c.Reporter, &c.Partner, &sample, &c.Traded, &c.Unweighted); err != nil {
			return nil, fmt.Errorf("scan stress cell: %w", err)
		}
		c.Sample = int(sample)
		cells = append(cells, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stress cells: %w", err)
	}
	return cells, nil
}
