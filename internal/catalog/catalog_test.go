package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/storage/models"
)

func newTestService(t *testing.T) (*Service, *storage.KindRepository) {
	t.Helper()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	repo := storage.NewKindRepository(db)
	return NewService(repo), repo
}

func TestGetFetchesThrough(t *testing.T) {
	svc, _ := newTestService(t)

	kind, err := svc.Get(context.Background(), models.KindAuditorium)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !kind.IsSlotted || !kind.RequiresNote {
		t.Fatalf("auditorium policy = %+v, want slotted with required note", kind)
	}

	_, err = svc.Get(context.Background(), "laboratory:ghost")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown kind, got %v", err)
	}
}

func TestInvalidateExposesCatalogChanges(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// Warm the cache.
	warm, err := svc.Get(ctx, models.KindProjector)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Change the policy behind the cache's back.
	warm.CapacityPerDay = 5
	if err := repo.Update(ctx, warm); err != nil {
		t.Fatalf("updating kind: %v", err)
	}

	cached, err := svc.Get(ctx, models.KindProjector)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if cached.CapacityPerDay != 2 {
		t.Fatalf("cache served capacity %d before invalidation, want the cached 2", cached.CapacityPerDay)
	}

	// The change event handler calls Invalidate; the next read must fetch
	// through.
	svc.Invalidate()

	fresh, err := svc.Get(ctx, models.KindProjector)
	if err != nil {
		t.Fatalf("Get after invalidate: %v", err)
	}
	if fresh.CapacityPerDay != 5 {
		t.Fatalf("capacity after invalidation = %d, want 5", fresh.CapacityPerDay)
	}
}
