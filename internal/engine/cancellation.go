package engine

import (
	"context"
	"errors"

	"github.com/campus-reserve/backend/internal/dateutil"
	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/storage/models"
	"github.com/campus-reserve/backend/internal/websocket"
)

// Cancel removes a reservation on behalf of requesterID, freeing its
// capacity or slots.
//
// Authorization: the owner, or an admin. Temporal rule: a reservation is
// cancellable through its own date, plus the weekend-to-Monday grace window
// (see dateutil.Cancellable). Admins cancelling someone else's reservation
// are exercising the any-reservation override and skip the temporal rule.
//
// Cancelling is idempotent at the caller level: a second cancel of the same
// reservation reports not_found and frees nothing.
func (e *Engine) Cancel(ctx context.Context, reservationID, requesterID string, isAdmin bool) error {
	res, err := e.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return newError(CodeNotFound, "reservation %s does not exist", reservationID)
		}
		return err
	}

	if res.OwnerID != requesterID && !isAdmin {
		return newError(CodeUnauthorized, "only the reservation owner or an administrator may cancel it")
	}

	if !isAdmin {
		today := dateutil.Today(e.loc)
		if !dateutil.Cancellable(res.Date, e.createdOn(res.CreatedAt), today) {
			return newError(CodeTooLateToCancel,
				"the reservation date %s has passed and can no longer be cancelled", res.Date)
		}
	}

	if err := e.reservations.Delete(ctx, res.ID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted by a concurrent cancel between the read and here.
			return newError(CodeNotFound, "reservation %s does not exist", reservationID)
		}
		return err
	}

	e.announceCancellation(res)
	return nil
}

// AdminCancel removes any reservation regardless of owner or date.
func (e *Engine) AdminCancel(ctx context.Context, reservationID, adminID string) error {
	return e.Cancel(ctx, reservationID, adminID, true)
}

// DeleteKindCascade removes a resource kind and, in the same logical
// operation, purges its future-dated reservations. Past reservations are
// retained for audit. Existing holders of purged rows learn about it through
// the change event like any other cancellation.
func (e *Engine) DeleteKindCascade(ctx context.Context, kindID string) error {
	today := dateutil.Today(e.loc)

	if _, err := e.kinds.GetByID(ctx, kindID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return newError(CodeNotFound, "resource kind %q does not exist", kindID)
		}
		return err
	}

	if _, err := e.kinds.DeleteCascade(ctx, kindID, today); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return newError(CodeNotFound, "resource kind %q does not exist", kindID)
		}
		return err
	}

	if e.catalog != nil {
		e.catalog.Invalidate()
	}
	if e.broadcaster != nil {
		e.broadcaster.KindChanged(websocket.ActionDeleted, kindID)
		e.broadcaster.ReservationChanged(websocket.ActionDeleted, "", kindID, "")
	}
	return nil
}

// announceCancellation fires the change event and the best-effort
// notification. Neither can fail or roll back the cancellation.
func (e *Engine) announceCancellation(res *models.Reservation) {
	if e.broadcaster != nil {
		e.broadcaster.ReservationChanged(websocket.ActionCancelled, res.ID, res.ResourceKind, res.Date)
	}
	if e.notifier != nil {
		e.notifier.ReservationCancelled(*res)
	}
}
