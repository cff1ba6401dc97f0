// Package engine implements reservation admission, availability, retry, and
// cancellation.
//
// Every policy rejection is an expected, recoverable outcome carried as an
// *Error with a stable code, never a panic or an untyped failure. Storage
// and transport faults stay ordinary wrapped errors and map to a generic
// failure at the API boundary.
package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies which policy a rejected request violated.
type Code string

const (
	CodeResourceInactive          Code = "resource_inactive"
	CodeDuplicateOwnerReservation Code = "duplicate_owner_reservation"
	CodeSlotConflict              Code = "slot_conflict"
	CodeMissingObservation        Code = "missing_observation"
	CodeCapacityExceeded          Code = "capacity_exceeded"
	CodeRaceLost                  Code = "race_lost"
	CodeUnauthorized              Code = "unauthorized"
	CodeTooLateToCancel           Code = "too_late_to_cancel"
	CodeNotFound                  Code = "not_found"
	CodeInvalidRequest            Code = "invalid_request"
)

// Error is a typed, recoverable engine outcome. Callers render each code
// distinctly; the message always names the specific policy violated.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`

	// ConflictingSlots is set for slot_conflict: the requested windows
	// already held by other owners.
	ConflictingSlots []string `json:"conflicting_slots,omitempty"`

	// ConflictingOwner is set where known when an exclusive resource was
	// claimed by a concurrent request.
	ConflictingOwner string `json:"conflicting_owner,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.ConflictingSlots) > 0 {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(e.ConflictingSlots, ", "))
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError unwraps err into an engine *Error if it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HasCode reports whether err is an engine error with the given code.
func HasCode(err error, code Code) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}
