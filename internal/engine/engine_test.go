package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/campus-reserve/backend/internal/catalog"
	"github.com/campus-reserve/backend/internal/dateutil"
	"github.com/campus-reserve/backend/internal/notify"
	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/storage/models"
)

func newTestEngine(t *testing.T) (*Engine, *storage.DB) {
	t.Helper()

	db, err := storage.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := storage.RunMigrations(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	reservations := storage.NewReservationRepository(db)
	kinds := storage.NewKindRepository(db)
	cat := catalog.NewService(kinds)

	e := New(reservations, kinds, cat, nil, notify.NewNotifier(notify.LogSender{}), time.Local)
	e.backoff = 5 * time.Millisecond
	return e, db
}

func mustAdmit(t *testing.T, e *Engine, req AdmissionRequest) *models.Reservation {
	t.Helper()
	res, err := e.Admit(context.Background(), req)
	if err != nil {
		t.Fatalf("Admit(%+v): %v", req, err)
	}
	return res
}

func addKind(t *testing.T, e *Engine, kind models.ResourceKind) {
	t.Helper()
	if err := e.kinds.Create(context.Background(), &kind); err != nil {
		t.Fatalf("creating kind %s: %v", kind.ID, err)
	}
	e.catalog.Invalidate()
}

func TestAvailabilityRoundTrip(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	before, err := e.Availability(ctx, models.KindProjector, "2025-03-10")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if before.Capacity != 2 || before.Used != 0 || before.Remaining != 2 {
		t.Fatalf("fresh availability = %+v, want capacity 2, used 0, remaining 2", before)
	}

	mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindProjector, Date: "2025-03-10", OwnerID: "u1"})

	after, err := e.Availability(ctx, models.KindProjector, "2025-03-10")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if after.Used != 1 || after.Remaining != 1 {
		t.Fatalf("availability after admit = %+v, want used 1, remaining 1", after)
	}
}

func TestAvailabilityInvalidDate(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Availability(context.Background(), models.KindProjector, "03/10/2025")
	if !HasCode(err, CodeInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestAdmitDuplicateOwner(t *testing.T) {
	e, _ := newTestEngine(t)

	req := AdmissionRequest{ResourceKind: models.KindSpeaker, Date: "2025-03-10", OwnerID: "u1"}
	mustAdmit(t, e, req)

	_, err := e.Admit(context.Background(), req)
	if !HasCode(err, CodeDuplicateOwnerReservation) {
		t.Fatalf("expected duplicate_owner_reservation, got %v", err)
	}

	// Same owner, different date is fine.
	mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindSpeaker, Date: "2025-03-11", OwnerID: "u1"})
}

func TestAdmitInactiveKind(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	if err := e.kinds.SetActive(ctx, models.KindProjector, false); err != nil {
		t.Fatalf("deactivating kind: %v", err)
	}
	e.catalog.Invalidate()

	_, err := e.Admit(ctx, AdmissionRequest{ResourceKind: models.KindProjector, Date: "2025-03-10", OwnerID: "u1"})
	if !HasCode(err, CodeResourceInactive) {
		t.Fatalf("expected resource_inactive, got %v", err)
	}

	// Availability still reports for inactive kinds.
	if _, err := e.Availability(ctx, models.KindProjector, "2025-03-10"); err != nil {
		t.Fatalf("Availability on inactive kind: %v", err)
	}
}

func TestAdmitUnknownKind(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Admit(context.Background(), AdmissionRequest{ResourceKind: "laboratory:nope", Date: "2025-03-10", OwnerID: "u1"})
	if !HasCode(err, CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestAdmitCapacityExceeded(t *testing.T) {
	e, _ := newTestEngine(t)

	mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindProjector, Date: "2025-03-10", OwnerID: "u1"})
	mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindProjector, Date: "2025-03-10", OwnerID: "u2"})

	_, err := e.Admit(context.Background(), AdmissionRequest{ResourceKind: models.KindProjector, Date: "2025-03-10", OwnerID: "u3"})
	if !HasCode(err, CodeCapacityExceeded) {
		t.Fatalf("expected capacity_exceeded, got %v", err)
	}
}

func TestAdmitReusesFreedSeat(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	first := mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindProjector, Date: "2099-03-10", OwnerID: "u1"})
	mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindProjector, Date: "2099-03-10", OwnerID: "u2"})

	if err := e.Cancel(ctx, first.ID, "u1", false); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	// The freed seat must be admissible again.
	mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindProjector, Date: "2099-03-10", OwnerID: "u3"})

	avail, err := e.Availability(ctx, models.KindProjector, "2099-03-10")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if avail.Used != 2 || avail.Remaining != 0 {
		t.Fatalf("availability = %+v, want used 2, remaining 0", avail)
	}
}

func TestConcurrentAdmissionsRespectCapacity(t *testing.T) {
	e, _ := newTestEngine(t)

	const owners = 6 // capacity is 2
	var wg sync.WaitGroup
	errs := make([]error, owners)

	for i := 0; i < owners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := AdmissionRequest{
				ResourceKind: models.KindProjector,
				Date:         "2025-03-10",
				OwnerID:      "owner-" + string(rune('a'+i)),
			}
			_, errs[i] = e.AdmitWithRetry(context.Background(), req)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case HasCode(err, CodeCapacityExceeded) || HasCode(err, CodeRaceLost):
			lost++
		default:
			t.Fatalf("unexpected admission outcome: %v", err)
		}
	}

	if won != 2 {
		t.Errorf("winners = %d, want 2", won)
	}
	if lost != owners-2 {
		t.Errorf("losers = %d, want %d", lost, owners-2)
	}

	avail, err := e.Availability(context.Background(), models.KindProjector, "2025-03-10")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if avail.Used != 2 {
		t.Errorf("persisted reservations = %d, want exactly 2", avail.Used)
	}
}

func TestSlotConflictAllOrNothing(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	mustAdmit(t, e, AdmissionRequest{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-a",
		Slots:        []string{models.SlotMorning},
		Note:         "rehearsal",
	})

	_, err := e.Admit(ctx, AdmissionRequest{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-b",
		Slots:        []string{models.SlotMorning, models.SlotAfternoon},
		Note:         "assembly",
	})
	engineErr, ok := AsError(err)
	if !ok || engineErr.Code != CodeSlotConflict {
		t.Fatalf("expected slot_conflict, got %v", err)
	}
	if len(engineErr.ConflictingSlots) != 1 || engineErr.ConflictingSlots[0] != models.SlotMorning {
		t.Fatalf("conflicting slots = %v, want [morning]", engineErr.ConflictingSlots)
	}

	// Partial admission is forbidden: owner-b must hold nothing.
	avail, err := e.Availability(ctx, models.KindAuditorium, "2025-03-10")
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if len(avail.OccupiedSlots) != 1 {
		t.Fatalf("occupied slots = %v, want only owner-a's morning", avail.OccupiedSlots)
	}

	// The afternoon alone is still admissible.
	mustAdmit(t, e, AdmissionRequest{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-b",
		Slots:        []string{models.SlotAfternoon},
		Note:         "assembly",
	})
}

func TestSlotRerequestIsNoOp(t *testing.T) {
	e, _ := newTestEngine(t)

	first := mustAdmit(t, e, AdmissionRequest{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-a",
		Slots:        []string{models.SlotMorning},
		Note:         "rehearsal",
	})

	again := mustAdmit(t, e, AdmissionRequest{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-a",
		Slots:        []string{models.SlotMorning},
		Note:         "rehearsal",
	})
	if again.ID != first.ID {
		t.Fatalf("re-request created a new reservation %s, want existing %s", again.ID, first.ID)
	}

	// Amending with an extra window keeps the same reservation.
	amended := mustAdmit(t, e, AdmissionRequest{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-a",
		Slots:        []string{models.SlotMorning, models.SlotEvening},
	})
	if amended.ID != first.ID {
		t.Fatalf("amendment created a new reservation %s, want existing %s", amended.ID, first.ID)
	}
	if len(amended.Slots) != 2 {
		t.Fatalf("amended slots = %v, want morning and evening", amended.Slots)
	}
}

func TestSlottedAdmissionRequiresNote(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Admit(context.Background(), AdmissionRequest{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-a",
		Slots:        []string{models.SlotMorning},
	})
	if !HasCode(err, CodeMissingObservation) {
		t.Fatalf("expected missing_observation, got %v", err)
	}
}

func TestSlottedAdmissionRejectsUnknownSlot(t *testing.T) {
	e, _ := newTestEngine(t)

	_, err := e.Admit(context.Background(), AdmissionRequest{
		ResourceKind: models.KindAuditorium,
		Date:         "2025-03-10",
		OwnerID:      "owner-a",
		Slots:        []string{"midnight"},
		Note:         "concert",
	})
	if !HasCode(err, CodeInvalidRequest) {
		t.Fatalf("expected invalid_request, got %v", err)
	}
}

func TestCancelIdempotence(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	res := mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindProjector, Date: "2099-01-04", OwnerID: "u1"})

	if err := e.Cancel(ctx, res.ID, "u1", false); err != nil {
		t.Fatalf("first Cancel: %v", err)
	}
	err := e.Cancel(ctx, res.ID, "u1", false)
	if !HasCode(err, CodeNotFound) {
		t.Fatalf("second Cancel: expected not_found, got %v", err)
	}
}

func TestCancelAuthorization(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	res := mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindProjector, Date: "2099-01-04", OwnerID: "u1"})

	err := e.Cancel(ctx, res.ID, "u2", false)
	if !HasCode(err, CodeUnauthorized) {
		t.Fatalf("expected unauthorized for non-owner, got %v", err)
	}

	if err := e.AdminCancel(ctx, res.ID, "admin"); err != nil {
		t.Fatalf("AdminCancel: %v", err)
	}
}

func TestCancelTooLate(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	yesterday := dateutil.AddDays(e.Today(), -1)
	lastWeek := dateutil.AddDays(e.Today(), -7)

	// Backdate a reservation directly; admission has no business creating
	// past rows.
	id := storage.GenerateID()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO reservations (id, resource_kind, date, owner_id, seat, is_slotted, note, created_at)
		VALUES (?, 'projector', ?, 'u1', 0, 0, '', ?)
	`, id, yesterday, lastWeek+"T10:00:00Z"); err != nil {
		t.Fatalf("inserting past reservation: %v", err)
	}

	err := e.Cancel(ctx, id, "u1", false)
	if !HasCode(err, CodeTooLateToCancel) {
		t.Fatalf("expected too_late_to_cancel, got %v", err)
	}

	// The admin override is not bound by the date.
	if err := e.AdminCancel(ctx, id, "admin"); err != nil {
		t.Fatalf("AdminCancel on past reservation: %v", err)
	}
}

func TestCancelToday(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	res := mustAdmit(t, e, AdmissionRequest{ResourceKind: models.KindProjector, Date: e.Today(), OwnerID: "u1"})
	if err := e.Cancel(ctx, res.ID, "u1", false); err != nil {
		t.Fatalf("Cancel of today's reservation: %v", err)
	}
}

func TestDeleteKindCascade(t *testing.T) {
	e, db := newTestEngine(t)
	ctx := context.Background()

	addKind(t, e, models.ResourceKind{
		ID:             "laboratory:lab_chem",
		DisplayName:    "Chemistry Laboratory",
		CapacityPerDay: 1,
		IsActive:       true,
	})

	future1 := dateutil.AddDays(e.Today(), 3)
	future2 := dateutil.AddDays(e.Today(), 10)
	past := dateutil.AddDays(e.Today(), -3)

	mustAdmit(t, e, AdmissionRequest{ResourceKind: "laboratory:lab_chem", Date: future1, OwnerID: "u1"})
	mustAdmit(t, e, AdmissionRequest{ResourceKind: "laboratory:lab_chem", Date: future2, OwnerID: "u2"})

	pastID := storage.GenerateID()
	if _, err := db.ExecContext(ctx, `
		INSERT INTO reservations (id, resource_kind, date, owner_id, seat, is_slotted, note, created_at)
		VALUES (?, 'laboratory:lab_chem', ?, 'u3', 0, 0, '', CURRENT_TIMESTAMP)
	`, pastID, past); err != nil {
		t.Fatalf("inserting past reservation: %v", err)
	}

	if err := e.DeleteKindCascade(ctx, "laboratory:lab_chem"); err != nil {
		t.Fatalf("DeleteKindCascade: %v", err)
	}

	var remaining int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM reservations WHERE resource_kind = 'laboratory:lab_chem'",
	).Scan(&remaining); err != nil {
		t.Fatalf("counting remaining rows: %v", err)
	}
	if remaining != 1 {
		t.Errorf("remaining reservations = %d, want only the past row", remaining)
	}

	kinds, err := e.catalog.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive: %v", err)
	}
	for _, k := range kinds {
		if k.ID == "laboratory:lab_chem" {
			t.Error("deleted kind still listed as active")
		}
	}

	// Admissions against the deleted kind now fail cleanly.
	_, err = e.Admit(ctx, AdmissionRequest{ResourceKind: "laboratory:lab_chem", Date: future1, OwnerID: "u4"})
	if !HasCode(err, CodeNotFound) {
		t.Fatalf("expected not_found after cascade delete, got %v", err)
	}
}

func TestExclusiveLabSerializesConcurrentClaims(t *testing.T) {
	e, _ := newTestEngine(t)

	addKind(t, e, models.ResourceKind{
		ID:             "laboratory:lab_bio",
		DisplayName:    "Biology Laboratory",
		CapacityPerDay: 1,
		IsActive:       true,
	})

	const claimants = 4
	var wg sync.WaitGroup
	errs := make([]error, claimants)

	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := AdmissionRequest{
				ResourceKind: "laboratory:lab_bio",
				Date:         "2025-03-10",
				OwnerID:      "claimant-" + string(rune('a'+i)),
			}
			_, errs[i] = e.AdmitWithRetry(context.Background(), req)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		if !HasCode(err, CodeCapacityExceeded) && !HasCode(err, CodeRaceLost) {
			t.Fatalf("unexpected outcome: %v", err)
		}
	}
	if won != 1 {
		t.Errorf("winners = %d, want exactly 1 for an exclusive laboratory", won)
	}
}
