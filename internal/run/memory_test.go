package run

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryRepository_SaveAndFind(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	r := New("b", "k")

	if err := repo.Save(ctx, r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved, err := repo.FindByID(ctx, r.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved.ID != r.ID {
		t.Errorf("expected ID %s, got %s", r.ID, saved.ID)
	}
}

func TestMemoryRepository_Save_Update(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	r := New("b", "k")
	_ = repo.Save(ctx, r)

	r.SetCounts(4, 4, 0)
	_ = r.Complete()
	_ = repo.Save(ctx, r)

	saved, _ := repo.FindByID(ctx, r.ID)
	if saved.Status != StatusCompleted {
		t.Errorf("expected status %s, got %s", StatusCompleted, saved.Status)
	}
	if saved.Frames != 4 {
		t.Errorf("expected 4 frames, got %d", saved.Frames)
	}
}

func TestMemoryRepository_FindByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.FindByID(context.Background(), "nonexistent")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMemoryRepository_FindByID_ReturnsClone(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	r := New("b", "k")
	_ = repo.Save(ctx, r)

	found, _ := repo.FindByID(ctx, r.ID)
	found.Frames = 99
	_ = found.Fail("x")

	original, _ := repo.FindByID(ctx, r.ID)
	if original.Frames != 0 {
		t.Error("modifying returned run should not affect repository")
	}
	if original.Status != StatusRunning {
		t.Error("modifying returned run status should not affect repository")
	}
}

func TestMemoryRepository_List_NewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	base := time.Now()
	for i, runID := range []string{"run-a", "run-b", "run-c"} {
		r := NewWithID(runID, "b", "k")
		r.CreatedAt = base.Add(time.Duration(i) * time.Second)
		_ = repo.Save(ctx, r)
	}

	runs, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-c" || runs[2].ID != "run-a" {
		t.Errorf("unexpected order: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	r := New("b", "k")
	_ = repo.Save(ctx, r)

	if err := repo.Delete(ctx, r.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := repo.FindByID(ctx, r.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, r.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound on second delete, got %v", err)
	}
}
