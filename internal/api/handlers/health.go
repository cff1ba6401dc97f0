// Package handlers provides HTTP request handlers for the API endpoints.
package handlers

import (
	"net/http"

	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	DBConnected bool   `json:"db_connected"`
}

// HealthCheck returns a handler that performs a health check.
func HealthCheck(db *storage.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbConnected := db.Ping() == nil

		status := "healthy"
		code := http.StatusOK
		if !dbConnected {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		writeJSON(w, code, HealthResponse{
			Status:      status,
			DBConnected: dbConnected,
		})
	}
}

// StatusResponse represents the system status response.
type StatusResponse struct {
	ActiveKinds          int `json:"active_kinds"`
	UpcomingReservations int `json:"upcoming_reservations"`
	ConnectedClients     int `json:"connected_clients"`
}

// Status returns a handler that provides system status information.
func Status(db *storage.DB, hub *websocket.Hub, today func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var activeKinds int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resource_kinds WHERE is_active = 1").Scan(&activeKinds)

		var upcoming int
		db.QueryRowContext(ctx, "SELECT COUNT(*) FROM reservations WHERE date >= ?", today()).Scan(&upcoming)

		writeJSON(w, http.StatusOK, StatusResponse{
			ActiveKinds:          activeKinds,
			UpcomingReservations: upcoming,
			ConnectedClients:     hub.ClientCount(),
		})
	}
}
