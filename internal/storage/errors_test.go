package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/campus-reserve/backend/internal/storage/models"
)

func newTestRepository(t *testing.T) *ReservationRepository {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	return NewReservationRepository(db)
}

// The engine's pre-checks would normally catch these before the insert;
// going through Create directly simulates two admissions racing past the
// same pre-check, where the constraint rejection is the only signal left.

func TestCreateClassifiesOwnerDuplicateAtCommit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := &models.Reservation{
		ResourceKind: models.KindProjector,
		Date:         "2025-03-10",
		OwnerID:      "u1",
		Seat:         0,
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	// Same owner, different seat: only the owner-per-day index can reject
	// this, and it must read as a duplicate, not a lost race.
	second := &models.Reservation{
		ResourceKind: models.KindProjector,
		Date:         "2025-03-10",
		OwnerID:      "u1",
		Seat:         1,
	}
	err := repo.Create(ctx, second)
	if !errors.Is(err, ErrDuplicateOwner) {
		t.Fatalf("owner-day violation classified as %v, want ErrDuplicateOwner", err)
	}
}

func TestCreateClassifiesSeatRaceAtCommit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := &models.Reservation{
		ResourceKind: models.KindProjector,
		Date:         "2025-03-10",
		OwnerID:      "u1",
		Seat:         0,
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	// Different owner, same seat number: the seat index rejects, and the
	// caller must see a retryable lost race.
	second := &models.Reservation{
		ResourceKind: models.KindProjector,
		Date:         "2025-03-10",
		OwnerID:      "u2",
		Seat:         0,
	}
	err := repo.Create(ctx, second)
	if !errors.Is(err, ErrRaceLost) {
		t.Fatalf("seat violation classified as %v, want ErrRaceLost", err)
	}
}

func TestCreateClassifiesSlotRaceAtCommit(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := &models.Reservation{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-a",
		IsSlotted:    true,
		Slots:        []string{models.SlotMorning},
		Note:         "rehearsal",
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	second := &models.Reservation{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-b",
		IsSlotted:    true,
		Slots:        []string{models.SlotMorning},
		Note:         "assembly",
	}
	err := repo.Create(ctx, second)
	if !errors.Is(err, ErrRaceLost) {
		t.Fatalf("slot violation classified as %v, want ErrRaceLost", err)
	}

	// The rejected request must leave no rows behind.
	assignments, err := repo.OccupiedSlots(ctx, models.KindAuditorium, "2025-03-10")
	if err != nil {
		t.Fatalf("OccupiedSlots: %v", err)
	}
	if len(assignments) != 1 || assignments[0].OwnerID != "owner-a" {
		t.Fatalf("assignments = %+v, want only owner-a's morning", assignments)
	}
}

func TestCreateRejectsSecondSlottedRowForOwner(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := &models.Reservation{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-a",
		IsSlotted:    true,
		Slots:        []string{models.SlotMorning},
		Note:         "rehearsal",
	}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("first Create: %v", err)
	}

	// Two first-time slotted requests by the same owner racing: the loser
	// must not create a second reservation row and split the owner's slots
	// across records. Amendments go through AddSlots on the surviving row.
	second := &models.Reservation{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-a",
		IsSlotted:    true,
		Slots:        []string{models.SlotAfternoon},
		Note:         "rehearsal",
	}
	err := repo.Create(ctx, second)
	if !errors.Is(err, ErrDuplicateOwner) {
		t.Fatalf("second slotted row classified as %v, want ErrDuplicateOwner", err)
	}

	own, err := repo.GetOwnerReservation(ctx, models.KindAuditorium, "2025-03-10", "owner-a")
	if err != nil {
		t.Fatalf("GetOwnerReservation: %v", err)
	}
	if own == nil || len(own.Slots) != 1 || own.Slots[0] != models.SlotMorning {
		t.Fatalf("owner reservation = %+v, want the single morning row", own)
	}

	if err := repo.AddSlots(ctx, own, []string{models.SlotAfternoon}); err != nil {
		t.Fatalf("AddSlots after rejected duplicate: %v", err)
	}
}
