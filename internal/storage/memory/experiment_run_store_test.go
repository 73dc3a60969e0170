package memory

import (
	"context"
	"errors"
	"testing"

	"crop-stress-lab/internal/domain"
	"crop-stress-lab/internal/storage"
)

func TestExperimentRunStore_InsertAndGet(t *testing.T) {
	store := NewExperimentRunStore()
	ctx := context.Background()

	run := &domain.ExperimentRun{
		RunID:      "run1",
		Experiment: "exp601",
		ConfigHash: "abc",
		Reporters:  []string{"chn", "jpn"},
		Partners:   []string{"bra", "usa"},
		Samples:    100,
		StartedAt:  1000,
		Status:     domain.RunStatusCompleted,
	}

	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	run.Reporters[0] = "mutated"
	got, err := store.GetByID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Reporters[0] != "chn" {
		t.Errorf("store shares caller slice: got %q", got.Reporters[0])
	}
	if got.Samples != 100 {
		t.Errorf("Samples mismatch: got %d, want 100", got.Samples)
	}
}

func TestExperimentRunStore_DuplicateKey(t *testing.T) {
	store := NewExperimentRunStore()
	ctx := context.Background()

	run := &domain.ExperimentRun{RunID: "run1", Experiment: "exp601"}
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if err := store.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestExperimentRunStore_InvalidInput(t *testing.T) {
	store := NewExperimentRunStore()
	if err := store.Insert(context.Background(), &domain.ExperimentRun{RunID: "run1"}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestExperimentRunStore_NotFound(t *testing.T) {
	store := NewExperimentRunStore()
	ctx := context.Background()

	if _, err := store.GetByID(ctx, "nonexistent"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetLatest(ctx, "exp601"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestExperimentRunStore_GetLatest(t *testing.T) {
	store := NewExperimentRunStore()
	ctx := context.Background()

	runs := []*domain.ExperimentRun{
		{RunID: "r1", Experiment: "exp601", StartedAt: 1000, Status: domain.RunStatusCompleted},
		{RunID: "r2", Experiment: "exp601", StartedAt: 2000, Status: domain.RunStatusCompleted},
		{RunID: "r3", Experiment: "exp601", StartedAt: 3000, Status: domain.RunStatusFailed},
		{RunID: "r4", Experiment: "exp602", StartedAt: 4000, Status: domain.RunStatusCompleted},
	}
	for _, r := range runs {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	all, err := store.GetByExperiment(ctx, "exp601")
	if err != nil {
		t.Fatalf("GetByExperiment failed: %v", err)
	}
	if len(all) != 3 || all[0].RunID != "r1" || all[2].RunID != "r3" {
		t.Errorf("GetByExperiment order wrong: %d runs", len(all))
	}

	latest, err := store.GetLatest(ctx, "exp601")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.RunID != "r2" {
		t.Errorf("GetLatest = %s, want r2 (r3 failed)", latest.RunID)
	}
}
