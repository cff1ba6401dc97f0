// Package dateutil handles institution-local calendar dates.
//
// Reservation dates are opaque YYYY-MM-DD strings end to end. They are never
// round-tripped through a UTC-aware constructor, so a date entered at the
// institution never shifts by a day at local midnight. Validated date strings
// compare correctly with plain string comparison.
package dateutil

import (
	"fmt"
	"time"
)

// Layout is the wire and storage format for calendar dates.
const Layout = "2006-01-02"

// MondayGraceExtensionDays is how many days past a Monday reservation's date
// it remains cancellable when it was booked on the preceding weekend.
// 2 means "through Wednesday". Policy constant, confirm with the
// institution before changing.
const MondayGraceExtensionDays = 2

// Parse validates s as a YYYY-MM-DD calendar date.
// The returned time carries no location semantics; only the calendar
// components are meaningful.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// IsValid reports whether s is a well-formed calendar date.
func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Today returns the current calendar date in the given location.
func Today(loc *time.Location) string {
	return time.Now().In(loc).Format(Layout)
}

// Weekday returns the day of week for a validated date string.
func Weekday(s string) time.Weekday {
	t, err := Parse(s)
	if err != nil {
		return time.Sunday
	}
	return t.Weekday()
}

// AddDays shifts a validated date string by n calendar days.
func AddDays(s string, n int) string {
	t, err := Parse(s)
	if err != nil {
		return s
	}
	return t.AddDate(0, 0, n).Format(Layout)
}

// Cancellable reports whether a reservation for date, created on the
// createdOn calendar date, may still be cancelled when the current
// institution-local date is today.
//
// A reservation is cancellable through its own date. Past that, the single
// carve-out is the weekend-to-Monday case: a Monday reservation placed on the
// immediately preceding Saturday or Sunday stays cancellable for
// MondayGraceExtensionDays after the Monday.
func Cancellable(date, createdOn, today string) bool {
	if date >= today {
		return true
	}
	if !mondayGraceApplies(date, createdOn) {
		return false
	}
	return today <= AddDays(date, MondayGraceExtensionDays)
}

// mondayGraceApplies reports whether the weekend-booking carve-out covers the
// reservation. The preceding Saturday and Sunday are exactly date-2 and
// date-1 when date is a Monday.
func mondayGraceApplies(date, createdOn string) bool {
	if Weekday(date) != time.Monday {
		return false
	}
	return createdOn == AddDays(date, -1) || createdOn == AddDays(date, -2)
}
