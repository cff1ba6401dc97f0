package models

import (
	"time"
)

// Reservation is the append-mostly fact record: one owner holding one
// resource kind on one calendar date. For slotted kinds the held time windows
// live in the Slots list; for non-slotted kinds Seat is the capacity position
// the row occupies on its date.
type Reservation struct {
	ID           string    `json:"id"`
	ResourceKind string    `json:"resource_kind"`
	Date         string    `json:"date"` // YYYY-MM-DD, institution-local
	OwnerID      string    `json:"owner_id"`
	Seat         int       `json:"-"`
	IsSlotted    bool      `json:"is_slotted"`
	Slots        []string  `json:"slots,omitempty"`
	Note         string    `json:"note,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// SlotAssignment is one held (kind, date, slot) triple. The storage layer
// enforces system-wide uniqueness of the triple, so two owners can never hold
// the same window.
type SlotAssignment struct {
	ReservationID string `json:"reservation_id"`
	ResourceKind  string `json:"resource_kind"`
	Date          string `json:"date"`
	Slot          string `json:"slot"`
	OwnerID       string `json:"owner_id"`
}

// Availability is a point-in-time utilization snapshot for one kind and
// date. It is a stale read by contract: a positive Remaining is not a lock,
// and callers must re-query after any change event.
type Availability struct {
	ResourceKind  string   `json:"resource_kind"`
	Date          string   `json:"date"`
	Capacity      int      `json:"capacity"`
	Used          int      `json:"used"`
	Remaining     int      `json:"remaining"`
	OccupiedSlots []string `json:"occupied_slots,omitempty"`
}
