package runstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"chorus/internal/services"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestCreateAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx, Run{Source: "song.mp3", Artist: "Cohen", Title: "Hallelujah"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated run ID")
	}
	if created.Status != StatusPending {
		t.Errorf("expected pending status, got %s", created.Status)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Artist != "Cohen" || got.Title != "Hallelujah" {
		t.Errorf("unexpected run %+v", got)
	}
}

func TestLifecycleTransitions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, err := store.Create(ctx, Run{Source: "song.mp3"})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.UpdateStage(ctx, run.ID, "separate-stems"); err != nil {
		t.Fatalf("update stage: %v", err)
	}
	got, _ := store.Get(ctx, run.ID)
	if got.Status != StatusRunning || got.Stage != "separate-stems" {
		t.Errorf("unexpected state %+v", got)
	}

	if err := store.MarkCompleted(ctx, run.ID, "/out/video.mp4"); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	got, _ = store.Get(ctx, run.ID)
	if got.Status != StatusCompleted || got.OutputPath != "/out/video.mp4" {
		t.Errorf("unexpected state %+v", got)
	}

	if err := store.MarkFailed(ctx, run.ID, "render failed"); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	got, _ = store.Get(ctx, run.ID)
	if got.Status != StatusFailed || got.ErrorMessage != "render failed" {
		t.Errorf("unexpected state %+v", got)
	}
}

func TestGetUnknownRun(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.UpdateStage(context.Background(), "missing", "x"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRecentOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, source := range []string{"one", "two", "three"} {
		if _, err := store.Create(ctx, Run{Source: source}); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	run, err := store.Create(context.Background(), Run{Source: "persisted"})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), run.ID)
	if err != nil || got.Source != "persisted" {
		t.Fatalf("expected persisted run, got %+v err=%v", got, err)
	}
}
