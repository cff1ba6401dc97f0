// Package api provides HTTP routing and handlers for the REST API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/campus-reserve/backend/internal/api/handlers"
	"github.com/campus-reserve/backend/internal/api/middleware"
	"github.com/campus-reserve/backend/internal/catalog"
	"github.com/campus-reserve/backend/internal/engine"
	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/websocket"
)

// Deps bundles everything the router needs.
type Deps struct {
	DB           *storage.DB
	Hub          *websocket.Hub
	Engine       *engine.Engine
	Catalog      *catalog.Service
	Kinds        *storage.KindRepository
	Reservations *storage.ReservationRepository
	Auth         *middleware.Auth
	StaticDir    string
}

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(d Deps) http.Handler {
	r := mux.NewRouter()

	// Apply global middleware
	r.Use(middleware.Logging)
	r.Use(middleware.ErrorRecovery)

	// API subrouter
	api := r.PathPrefix("/api").Subrouter()

	// Health and status endpoints
	api.HandleFunc("/health", handlers.HealthCheck(d.DB)).Methods("GET")
	api.HandleFunc("/status", handlers.Status(d.DB, d.Hub, d.Engine.Today)).Methods("GET")

	// WebSocket endpoint (Change Notifier subscription)
	api.HandleFunc("/ws", handlers.WebSocketUpgrade(d.Hub)).Methods("GET")

	// Settings
	api.Handle("/settings", handlers.GetSettings(d.DB)).Methods("GET")
	api.Handle("/settings", d.Auth.RequireAdmin(handlers.UpdateSettings(d.DB))).Methods("PUT")

	// Availability (reads are open; identity only refines nothing here)
	api.Handle("/availability", d.Auth.Optional(handlers.Availability(d.Engine))).Methods("GET")

	// Resource kind catalog
	api.Handle("/kinds", d.Auth.Optional(handlers.ListKinds(d.Catalog))).Methods("GET")
	api.Handle("/kinds", d.Auth.RequireAdmin(handlers.CreateKind(d.Kinds, d.Catalog, d.Hub))).Methods("POST")
	api.Handle("/kinds/{id}", d.Auth.RequireAdmin(handlers.UpdateKind(d.Kinds, d.Catalog, d.Hub))).Methods("PUT")
	api.Handle("/kinds/{id}/deactivate", d.Auth.RequireAdmin(handlers.DeactivateKind(d.Kinds, d.Catalog, d.Hub))).Methods("POST")
	api.Handle("/kinds/{id}", d.Auth.RequireAdmin(handlers.DeleteKind(d.Engine))).Methods("DELETE")

	// Reservations
	admitLimiter := middleware.NewRateLimiter(2, 5)
	api.Handle("/reservations",
		admitLimiter.Limit(d.Auth.Require(handlers.CreateReservation(d.Engine)))).Methods("POST")
	api.Handle("/reservations", d.Auth.Optional(handlers.ListReservations(d.Reservations))).Methods("GET")
	api.Handle("/reservations/mine", d.Auth.Require(handlers.ListMyReservations(d.Reservations))).Methods("GET")
	api.Handle("/reservations/{id}", d.Auth.Require(handlers.CancelReservation(d.Engine))).Methods("DELETE")

	// Serve static frontend files
	r.PathPrefix("/").Handler(http.FileServer(http.Dir(d.StaticDir)))

	// Browser clients live on the institution portal origin.
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	})
	return c.Handler(r)
}
