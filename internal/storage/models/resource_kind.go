// Package models contains the domain models for the application.
package models

import (
	"strings"
	"time"
)

// ResourceKind is a category of reservable equipment or space, together with
// its admission policy.
type ResourceKind struct {
	ID             string    `json:"id"`
	DisplayName    string    `json:"display_name"`
	CapacityPerDay int       `json:"capacity_per_day"`
	IsSlotted      bool      `json:"is_slotted"`
	RequiresNote   bool      `json:"requires_note"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Built-in resource kind IDs. Laboratories are registered dynamically under
// the LaboratoryPrefix namespace.
const (
	KindProjector  = "projector"
	KindSpeaker    = "speaker"
	KindAuditorium = "auditorium"

	LaboratoryPrefix = "laboratory:"
)

// IsLaboratory reports whether a kind ID names a dynamically registered
// laboratory.
func IsLaboratory(kindID string) bool {
	return strings.HasPrefix(kindID, LaboratoryPrefix)
}

// Auditorium time slots. These are the only valid values for a slotted
// reservation.
const (
	SlotMorning   = "morning"
	SlotAfternoon = "afternoon"
	SlotEvening   = "evening"
)

// ValidSlots is the fixed set of sub-day time windows.
var ValidSlots = []string{SlotMorning, SlotAfternoon, SlotEvening}

// IsValidSlot reports whether slot names a known time window.
func IsValidSlot(slot string) bool {
	for _, s := range ValidSlots {
		if s == slot {
			return true
		}
	}
	return false
}
