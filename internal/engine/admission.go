package engine

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/campus-reserve/backend/internal/dateutil"
	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/storage/models"
	"github.com/campus-reserve/backend/internal/websocket"
)

// AdmissionRequest is one attempt to reserve a resource kind on a date.
type AdmissionRequest struct {
	ResourceKind string   `json:"resource_kind"`
	Date         string   `json:"date"`
	OwnerID      string   `json:"owner_id"`
	Slots        []string `json:"slots,omitempty"`
	Note         string   `json:"note,omitempty"`
}

// Admit validates the request against policy and current utilization and
// creates the reservation if still admissible at commit time.
//
// Validation is fail-fast in a fixed order: active kind, owner duplicate,
// slot conflicts, note policy, capacity. The pre-checks are optimistic; the
// insert itself is guarded by storage uniqueness constraints, and a
// commit-time rejection surfaces as race_lost (or
// duplicate_owner_reservation when the owner's own row won the race, which
// is idempotent and safe to re-encounter).
//
// Slot requests are all-or-nothing: a single conflicting window rejects the
// whole request and no row is created. An owner re-requesting only windows
// they already hold gets their existing reservation back unchanged.
func (e *Engine) Admit(ctx context.Context, req AdmissionRequest) (*models.Reservation, error) {
	kind, err := e.validateRequest(ctx, &req)
	if err != nil {
		return nil, err
	}

	if !kind.IsActive {
		return nil, newError(CodeResourceInactive,
			"%s is not accepting reservations", kind.DisplayName)
	}

	if kind.IsSlotted {
		return e.admitSlotted(ctx, kind, req)
	}
	return e.admitCapacity(ctx, kind, req)
}

// validateRequest normalizes the request and resolves the kind policy.
func (e *Engine) validateRequest(ctx context.Context, req *AdmissionRequest) (*models.ResourceKind, error) {
	if req.OwnerID == "" {
		return nil, newError(CodeInvalidRequest, "owner is required")
	}
	if !dateutil.IsValid(req.Date) {
		return nil, newError(CodeInvalidRequest,
			"date %q is not a valid YYYY-MM-DD calendar date", req.Date)
	}
	req.Note = strings.TrimSpace(req.Note)

	kind, err := e.catalog.Get(ctx, req.ResourceKind)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(CodeNotFound, "resource kind %q does not exist", req.ResourceKind)
		}
		return nil, err
	}

	if kind.IsSlotted {
		if len(req.Slots) == 0 {
			return nil, newError(CodeInvalidRequest,
				"%s is reserved per time slot; at least one slot is required", kind.DisplayName)
		}
		req.Slots = normalizeSlots(req.Slots)
		for _, slot := range req.Slots {
			if !models.IsValidSlot(slot) {
				return nil, newError(CodeInvalidRequest, "unknown time slot %q", slot)
			}
		}
	} else if len(req.Slots) > 0 {
		return nil, newError(CodeInvalidRequest,
			"%s is reserved per day, not per time slot", kind.DisplayName)
	}

	return kind, nil
}

// admitCapacity admits a non-slotted, capacity-limited kind. The reservation
// occupies an explicit seat number; the unique (kind, date, seat) index
// serializes concurrent admissions racing for the last place.
func (e *Engine) admitCapacity(ctx context.Context, kind *models.ResourceKind, req AdmissionRequest) (*models.Reservation, error) {
	existing, err := e.reservations.GetOwnerReservation(ctx, kind.ID, req.Date, req.OwnerID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, newError(CodeDuplicateOwnerReservation,
			"you already hold a %s reservation on %s", kind.DisplayName, req.Date)
	}

	if kind.RequiresNote && req.Note == "" {
		return nil, newError(CodeMissingObservation,
			"a note describing the intended use is required for %s", kind.DisplayName)
	}

	used, err := e.reservations.CountForDate(ctx, kind.ID, req.Date)
	if err != nil {
		return nil, err
	}
	if used >= kind.CapacityPerDay {
		return nil, newError(CodeCapacityExceeded,
			"all %d %s reservations for %s are taken", kind.CapacityPerDay, kind.DisplayName, req.Date)
	}

	seat, err := e.reservations.NextFreeSeat(ctx, kind.ID, req.Date)
	if err != nil {
		return nil, err
	}
	if seat >= kind.CapacityPerDay {
		// Capacity was reduced under existing holders; no seat is free.
		return nil, newError(CodeCapacityExceeded,
			"all %d %s reservations for %s are taken", kind.CapacityPerDay, kind.DisplayName, req.Date)
	}

	res := &models.Reservation{
		ResourceKind: kind.ID,
		Date:         req.Date,
		OwnerID:      req.OwnerID,
		Seat:         seat,
		Note:         req.Note,
	}
	if err := e.reservations.Create(ctx, res); err != nil {
		return nil, e.classifyCommit(err, kind, req)
	}

	e.announceAdmission(res, websocket.ActionCreated)
	return res, nil
}

// admitSlotted admits an auditorium-style kind where each day is partitioned
// into named windows and every (kind, date, slot) triple has at most one
// holder system-wide.
func (e *Engine) admitSlotted(ctx context.Context, kind *models.ResourceKind, req AdmissionRequest) (*models.Reservation, error) {
	own, err := e.reservations.GetOwnerReservation(ctx, kind.ID, req.Date, req.OwnerID)
	if err != nil {
		return nil, err
	}

	// Windows the owner already holds are a no-op, not a conflict.
	newSlots := subtractSlots(req.Slots, ownSlots(own))
	if len(newSlots) == 0 {
		return own, nil
	}

	assignments, err := e.reservations.OccupiedSlots(ctx, kind.ID, req.Date)
	if err != nil {
		return nil, err
	}
	if conflicts := conflictingSlots(newSlots, assignments, req.OwnerID); len(conflicts) > 0 {
		return nil, &Error{
			Code:             CodeSlotConflict,
			Message:          "requested time slots are already reserved",
			ConflictingSlots: conflicts,
		}
	}

	// A note is how auditorium usage stays auditable. An amendment may rely
	// on the note already on record.
	if kind.RequiresNote && req.Note == "" && (own == nil || own.Note == "") {
		return nil, newError(CodeMissingObservation,
			"a note describing the intended use is required for %s", kind.DisplayName)
	}

	if own != nil {
		if err := e.reservations.AddSlots(ctx, own, newSlots); err != nil {
			return nil, e.classifyCommit(err, kind, req)
		}
		own.Slots = normalizeSlots(append(own.Slots, newSlots...))
		e.announceAdmission(own, websocket.ActionUpdated)
		return own, nil
	}

	res := &models.Reservation{
		ResourceKind: kind.ID,
		Date:         req.Date,
		OwnerID:      req.OwnerID,
		IsSlotted:    true,
		Slots:        newSlots,
		Note:         req.Note,
	}
	if err := e.reservations.Create(ctx, res); err != nil {
		return nil, e.classifyCommit(err, kind, req)
	}

	e.announceAdmission(res, websocket.ActionCreated)
	return res, nil
}

// classifyCommit maps a storage-layer constraint rejection onto the engine
// taxonomy. Anything else passes through as an unrecoverable storage fault.
func (e *Engine) classifyCommit(err error, kind *models.ResourceKind, req AdmissionRequest) error {
	switch {
	case errors.Is(err, storage.ErrDuplicateOwner):
		return newError(CodeDuplicateOwnerReservation,
			"you already hold a %s reservation on %s", kind.DisplayName, req.Date)
	case errors.Is(err, storage.ErrRaceLost):
		return newError(CodeRaceLost,
			"a concurrent reservation for %s on %s committed first", kind.DisplayName, req.Date)
	default:
		return err
	}
}

// announceAdmission fires the change event and the best-effort notification.
// Neither can fail the admission.
func (e *Engine) announceAdmission(res *models.Reservation, action string) {
	if e.broadcaster != nil {
		e.broadcaster.ReservationChanged(action, res.ID, res.ResourceKind, res.Date)
	}
	if e.notifier != nil {
		e.notifier.ReservationCreated(*res)
	}
}

func ownSlots(res *models.Reservation) []string {
	if res == nil {
		return nil
	}
	return res.Slots
}

// normalizeSlots sorts and deduplicates a slot list.
func normalizeSlots(slots []string) []string {
	seen := make(map[string]bool, len(slots))
	var out []string
	for _, s := range slots {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// subtractSlots returns the slots in want that are not in have.
func subtractSlots(want, have []string) []string {
	held := make(map[string]bool, len(have))
	for _, s := range have {
		held[s] = true
	}
	var out []string
	for _, s := range want {
		if !held[s] {
			out = append(out, s)
		}
	}
	return out
}

// conflictingSlots returns the requested slots held by owners other than
// ownerID, sorted.
func conflictingSlots(requested []string, assignments []models.SlotAssignment, ownerID string) []string {
	holders := make(map[string]string, len(assignments))
	for _, a := range assignments {
		holders[a.Slot] = a.OwnerID
	}

	var conflicts []string
	for _, s := range requested {
		if holder, taken := holders[s]; taken && holder != ownerID {
			conflicts = append(conflicts, s)
		}
	}
	sort.Strings(conflicts)
	return conflicts
}
