// Package notify delivers reservation notifications to owners.
//
// Delivery is fire-and-forget: the engine hands off a snapshot and moves on.
// A delivery failure is logged and never propagates back into the mutation
// that triggered it.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/campus-reserve/backend/internal/storage/models"
)

// Action describes what happened to the reservation being announced.
type Action string

const (
	ActionCreated   Action = "created"
	ActionCancelled Action = "cancelled"
)

// Sender delivers a single notification. Implementations talk to the
// external mail/notification system; the engine only sees this interface.
type Sender interface {
	Send(ctx context.Context, reservation models.Reservation, action Action) error
}

// Notifier dispatches reservation notifications asynchronously through a
// Sender.
type Notifier struct {
	sender  Sender
	timeout time.Duration
}

// NewNotifier creates a notifier around the given sender.
func NewNotifier(sender Sender) *Notifier {
	return &Notifier{
		sender:  sender,
		timeout: 10 * time.Second,
	}
}

// ReservationCreated announces a successful admission. Returns immediately.
func (n *Notifier) ReservationCreated(reservation models.Reservation) {
	n.dispatch(reservation, ActionCreated)
}

// ReservationCancelled announces a cancellation. Returns immediately.
func (n *Notifier) ReservationCancelled(reservation models.Reservation) {
	n.dispatch(reservation, ActionCancelled)
}

func (n *Notifier) dispatch(reservation models.Reservation, action Action) {
	if n == nil || n.sender == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
		defer cancel()

		if err := n.sender.Send(ctx, reservation, action); err != nil {
			log.Printf("Notification delivery failed (reservation %s, action %s): %v",
				reservation.ID, action, err)
		}
	}()
}

// LogSender is the default Sender: it writes the notification to the server
// log. Real mail delivery is an external collaborator wired in at startup
// when configured.
type LogSender struct{}

// Send logs the notification.
func (LogSender) Send(_ context.Context, reservation models.Reservation, action Action) error {
	log.Printf("Notification: reservation %s for %s on %s %s (owner %s)",
		reservation.ID, reservation.ResourceKind, reservation.Date, action, reservation.OwnerID)
	return nil
}
