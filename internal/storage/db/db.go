// Package db opens the PostgreSQL and ClickHouse backed stores.
package db

import (
	"context"
	"fmt"

	"crop-stress-lab/internal/storage"
	chstore "crop-stress-lab/internal/storage/clickhouse"
	"crop-stress-lab/internal/storage/migrations"
	pgstore "crop-stress-lab/internal/storage/postgres"
)

// DB holds both connections and the stores built on them.
// Runs and summaries live in PostgreSQL; per-sample rows in ClickHouse.
type DB struct {
	Postgres   *pgstore.Pool
	ClickHouse *chstore.Conn
	Stores     storage.Stores
}

// Open connects to both databases and applies pending migrations.
func Open(ctx context.Context, postgresDSN, clickhouseDSN string) (*DB, error) {
	if postgresDSN == "" || clickhouseDSN == "" {
		return nil, fmt.Errorf("%w: both postgres and clickhouse DSNs are required", storage.ErrInvalidInput)
	}

	pgPool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
		pgPool.Close()
		return nil, err
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pgPool.Close()
		return nil, err
	}

	return &DB{
		Postgres:   pgPool,
		ClickHouse: chConn,
		Stores: storage.Stores{
			Runs:      pgstore.NewExperimentRunStore(pgPool),
			Summaries: pgstore.NewReporterSummaryStore(pgPool),
			Cells:     chstore.NewStressCellStore(chConn),
			Totals:    chstore.NewTotalStressStore(chConn),
		},
	}, nil
}

// Close closes both connections.
func (d *DB) Close() {
	d.ClickHouse.Close()
	d.Postgres.Close()
}
