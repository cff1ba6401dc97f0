package websocket

import (
	"log"
)

// EventBroadcaster handles broadcasting WebSocket events.
type EventBroadcaster struct {
	hub *Hub
}

// NewEventBroadcaster creates a new event broadcaster.
func NewEventBroadcaster(hub *Hub) *EventBroadcaster {
	return &EventBroadcaster{hub: hub}
}

// ReservationChanged announces that a reservation row was created or
// removed. Clients re-query availability for the named kind and date.
func (b *EventBroadcaster) ReservationChanged(action, reservationID, kind, date string) {
	b.broadcast(NewMessage(TypeTableChanged, TableChangedPayload{
		Table:        TableReservations,
		Action:       action,
		RowID:        reservationID,
		ResourceKind: kind,
		Date:         date,
	}))
}

// KindChanged announces a catalog mutation (create, update, deactivate,
// cascade delete).
func (b *EventBroadcaster) KindChanged(action, kindID string) {
	b.broadcast(NewMessage(TypeTableChanged, TableChangedPayload{
		Table:  TableResourceKinds,
		Action: action,
		RowID:  kindID,
	}))
}

// DayRollover announces that the institution-local date advanced.
func (b *EventBroadcaster) DayRollover(today string) {
	b.broadcast(NewMessage(TypeDayRollover, DayRolloverPayload{Today: today}))
}

// Notify sends a user-facing notification to all connected clients.
func (b *EventBroadcaster) Notify(level, title, message string) {
	b.broadcast(NewMessage(TypeNotification, NotificationPayload{
		Level:   level,
		Title:   title,
		Message: message,
	}))
}

// broadcast sends a message to all connected clients.
func (b *EventBroadcaster) broadcast(msg Message) {
	data, err := msg.JSON()
	if err != nil {
		log.Printf("Error encoding WebSocket message: %v", err)
		return
	}

	b.hub.Broadcast(data)
}
