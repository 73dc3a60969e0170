package clickhouse

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

func TestStressCellStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStressCellStore(conn)
	ctx := context.Background()

	assert.NoError(t, store.InsertBulk(ctx, nil))

	cells := []*domain.StressCell{
		{RunID: "run-1", Reporter: "chn", Partner: "usa", Sample: 1, Traded: 0.14, Unweighted: 0.2},
		{RunID: "run-1", Reporter: "chn", Partner: "usa", Sample: 0, Traded: 0.35, Unweighted: 0.5},
		{RunID: "run-1", Reporter: "chn", Partner: "bra", Sample: 0, Traded: math.NaN(), Unweighted: math.NaN()},
		{RunID: "run-1", Reporter: "jpn", Partner: "usa", Sample: 0, Traded: 0.01, Unweighted: 0.1},
	}
	require.NoError(t, store.InsertBulk(ctx, cells))

	got, err := store.GetByReporter(ctx, "run-1", "chn")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "bra", got[0].Partner)
	assert.True(t, math.IsNaN(got[0].Traded))
	assert.Equal(t, 0.35, got[1].Traded)
	assert.Equal(t, 1, got[2].Sample)

	all, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestStressCellStore_InsertBulk_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewStressCellStore(conn)
	ctx := context.Background()

	cell := &domain.StressCell{RunID: "run-1", Reporter: "chn", Partner: "usa", Sample: 0, Traded: 0.3}

	err := store.InsertBulk(ctx, []*domain.StressCell{cell, cell})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	require.NoError(t, store.InsertBulk(ctx, []*domain.StressCell{cell}))
	assert.ErrorIs(t, store.InsertBulk(ctx, []*domain.StressCell{cell}), storage.ErrDuplicateKey)
}

func TestTotalStressStore_InsertBulk(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTotalStressStore(conn)
	ctx := context.Background()

	points := []*domain.TotalStressPoint{
		{RunID: "run-1", Reporter: "jpn", Sample: 0, Value: 0},
		{RunID: "run-1", Reporter: "chn", Sample: 1, Value: 0.14},
		{RunID: "run-1", Reporter: "chn", Sample: 0, Value: 0.38},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "chn", got[0].Reporter)
	assert.Equal(t, 0.38, got[0].Value)
	assert.Equal(t, "jpn", got[2].Reporter)

	assert.ErrorIs(t, store.InsertBulk(ctx, points[:1]), storage.ErrDuplicateKey)
}
