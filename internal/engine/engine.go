package engine

import (
	"context"
	"errors"
	"time"

	"github.com/campus-reserve/backend/internal/catalog"
	"github.com/campus-reserve/backend/internal/dateutil"
	"github.com/campus-reserve/backend/internal/notify"
	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/storage/models"
	"github.com/campus-reserve/backend/internal/websocket"
)

// Engine is the reservation admission and conflict-resolution core. All
// serialization of concurrent admissions happens at the storage layer via
// uniqueness constraints; the engine performs optimistic pre-checks and
// treats a constraint rejection as the sole race signal.
type Engine struct {
	reservations *storage.ReservationRepository
	kinds        *storage.KindRepository
	catalog      *catalog.Service
	broadcaster  *websocket.EventBroadcaster
	notifier     *notify.Notifier
	loc          *time.Location

	maxAttempts int
	backoff     time.Duration
}

// New creates an engine. broadcaster and notifier may be nil (side effects
// are skipped); loc defaults to time.Local.
func New(
	reservations *storage.ReservationRepository,
	kinds *storage.KindRepository,
	cat *catalog.Service,
	broadcaster *websocket.EventBroadcaster,
	notifier *notify.Notifier,
	loc *time.Location,
) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{
		reservations: reservations,
		kinds:        kinds,
		catalog:      cat,
		broadcaster:  broadcaster,
		notifier:     notifier,
		loc:          loc,
		maxAttempts:  DefaultMaxAttempts,
		backoff:      DefaultBackoff,
	}
}

// Today returns the current institution-local calendar date.
func (e *Engine) Today() string {
	return dateutil.Today(e.loc)
}

// Availability computes the utilization snapshot for a kind and date.
//
// This is explicitly a stale read: a positive Remaining is not a lock, and
// callers re-query after every change event and before every admission
// attempt. Past dates report historical usage; inactive kinds still report.
func (e *Engine) Availability(ctx context.Context, kindID, date string) (*models.Availability, error) {
	if !dateutil.IsValid(date) {
		return nil, newError(CodeInvalidRequest, "date %q is not a valid YYYY-MM-DD calendar date", date)
	}

	kind, err := e.catalog.Get(ctx, kindID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(CodeNotFound, "resource kind %q does not exist", kindID)
		}
		return nil, err
	}

	avail := &models.Availability{
		ResourceKind: kind.ID,
		Date:         date,
		Capacity:     kind.CapacityPerDay,
	}

	if kind.IsSlotted {
		assignments, err := e.reservations.OccupiedSlots(ctx, kind.ID, date)
		if err != nil {
			return nil, err
		}
		for _, a := range assignments {
			avail.OccupiedSlots = append(avail.OccupiedSlots, a.Slot)
		}
		avail.Used = len(avail.OccupiedSlots)
	} else {
		used, err := e.reservations.CountForDate(ctx, kind.ID, date)
		if err != nil {
			return nil, err
		}
		avail.Used = used
	}

	avail.Remaining = avail.Capacity - avail.Used
	if avail.Remaining < 0 {
		avail.Remaining = 0
	}
	return avail, nil
}

// createdOn converts a server timestamp to the institution-local calendar
// date it fell on.
func (e *Engine) createdOn(t time.Time) string {
	return t.In(e.loc).Format(dateutil.Layout)
}
