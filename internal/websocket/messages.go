package websocket

import (
	"encoding/json"
	"time"
)

// MessageType identifies the type of WebSocket message.
type MessageType string

const (
	// Server -> Client event types.
	//
	// Change events are advisory cache invalidation only: the payload names
	// the table that changed, and clients re-run their availability query
	// instead of trusting any pushed state.
	TypeTableChanged MessageType = "table.changed"
	TypeDayRollover  MessageType = "day.rollover"
	TypeNotification MessageType = "notification"

	// Client -> Server command types
	TypePing MessageType = "ping"

	// Server -> Client response types
	TypePong  MessageType = "pong"
	TypeError MessageType = "error"
)

// Tables clients can observe through change events.
const (
	TableReservations  = "reservations"
	TableResourceKinds = "resource_kinds"
)

// Change actions carried by table.changed events.
const (
	ActionCreated   = "created"
	ActionUpdated   = "updated"
	ActionCancelled = "cancelled"
	ActionDeleted   = "deleted"
)

// Message represents a WebSocket message envelope.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   any         `json:"payload"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, payload any) Message {
	return Message{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// JSON serializes the message to JSON bytes.
func (m Message) JSON() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalFrom decodes a message envelope from JSON bytes.
func (m *Message) UnmarshalFrom(data []byte) error {
	return json.Unmarshal(data, m)
}

// TableChangedPayload is the payload for table.changed events. RowID and the
// kind/date hints are best-effort; the contract is only "something changed,
// re-query before trusting local state".
type TableChangedPayload struct {
	Table        string `json:"table"`
	Action       string `json:"action"`
	RowID        string `json:"row_id,omitempty"`
	ResourceKind string `json:"resource_kind,omitempty"`
	Date         string `json:"date,omitempty"`
}

// DayRolloverPayload is the payload for day.rollover events, sent when the
// institution-local calendar date advances.
type DayRolloverPayload struct {
	Today string `json:"today"`
}

// NotificationPayload is the payload for notification events.
type NotificationPayload struct {
	Level   string `json:"level"` // info, warning, error, success
	Title   string `json:"title"`
	Message string `json:"message"`
}

// ErrorPayload is the payload for error messages.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
