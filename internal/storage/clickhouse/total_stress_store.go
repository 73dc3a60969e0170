package clickhouse

import (
	"context"
	"fmt"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

// TotalStressStore implements storage.TotalStressStore using ClickHouse.
type TotalStressStore struct {
	conn *Conn
}

// NewTotalStressStore creates a new TotalStressStore.
func NewTotalStressStore(conn *Conn) *TotalStressStore {
	return &TotalStressStore{conn: conn}
}

var _ storage.TotalStressStore = (*TotalStressStore)(nil)

type totalKey struct {
	runID    string
	reporter string
	sample   uint32
}

// InsertBulk adds points. Fails entire batch on duplicate (run_id, reporter, sample).
func (s *TotalStressStore) InsertBulk(ctx context.Context, points []*domain.TotalStressPoint) error {
	if len(points) == 0 {
		return nil
	}

	seen := make(map[totalKey]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.RunID == "" || p.Reporter == "" || p.Sample < 0 {
			return storage.ErrInvalidInput
		}
		k := totalKey{p.RunID, p.Reporter, uint32(p.Sample)}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateKey
		}
		seen[k] = struct{}{}
	}

	runs := runIDs(points, func(p *domain.TotalStressPoint) string { return p.RunID })
	var count uint64
	err := s.conn.QueryRow(ctx, `SELECT count(*) FROM total_stress WHERE run_id IN (?)`, runs).Scan(&count)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	// total stress is written once per run
	if count > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO total_stress (run_id, reporter, sample, value)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.RunID, p.Reporter, uint32(p.Sample), p.Value); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRun retrieves all points of a run, ordered by reporter, sample ASC.
func (s *TotalStressStore) GetByRun(ctx context.Context, runID string) ([]*domain.TotalStressPoint, error) {
	query := `
		SELECT run_id, reporter, sample, value
		FROM total_stress FINAL
		WHERE run_id = ?
		ORDER BY reporter ASC, sample ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query total stress: %w", err)
	}
	defer rows.Close()

	var points []*domain.TotalStressPoint
	for rows.Next() {
		var p domain.TotalStressPoint
		var sample uint32
		if err := rows.Scan(&p.RunID, &p.Reporter, &sample, &p.Value); err != nil {
			return nil, fmt.Errorf("scan total stress: %w", err)
		}
		p.Sample = int(sample)
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate total stress: %w", err)
	}
	return points, nil
}
