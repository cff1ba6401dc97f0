package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func TestHubRegisterBroadcastUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := NewClient(hub)
	hub.Register(client)

	broadcaster := NewEventBroadcaster(hub)
	broadcaster.ReservationChanged(ActionCreated, "res-1", "projector", "2025-03-10")

	select {
	case got := <-client.Send():
		var msg Message
		if err := json.Unmarshal(got, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if msg.Type != TypeTableChanged {
			t.Fatalf("expected %s, got %s", TypeTableChanged, msg.Type)
		}
		payload, _ := msg.Payload.(map[string]any)
		if payload["table"] != TableReservations {
			t.Fatalf("expected table %q, got %v", TableReservations, payload["table"])
		}
		if payload["action"] != ActionCreated {
			t.Fatalf("expected action %q, got %v", ActionCreated, payload["action"])
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}

	hub.Unregister(client)
}

func TestHubDayRollover(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	client := NewClient(hub)
	hub.Register(client)

	NewEventBroadcaster(hub).DayRollover("2025-03-11")

	select {
	case got := <-client.Send():
		var msg Message
		if err := json.Unmarshal(got, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if msg.Type != TypeDayRollover {
			t.Fatalf("expected %s, got %s", TypeDayRollover, msg.Type)
		}
	case <-time.After(1 * time.Second):
		t.Fatal("timeout waiting for message")
	}
}
