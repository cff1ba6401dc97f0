// Package main is the entry point for the resource reservation server.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/campus-reserve/backend/internal/api"
	"github.com/campus-reserve/backend/internal/api/middleware"
	"github.com/campus-reserve/backend/internal/catalog"
	"github.com/campus-reserve/backend/internal/engine"
	"github.com/campus-reserve/backend/internal/notify"
	"github.com/campus-reserve/backend/internal/scheduler"
	"github.com/campus-reserve/backend/internal/storage"
	"github.com/campus-reserve/backend/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	// Parse command-line flags
	addr := flag.String("addr", ":8080", "HTTP server address")
	dataDir := flag.String("data", "/data", "Data directory for SQLite database")
	staticDir := flag.String("static", "./static", "Directory for static frontend files")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(*addr); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	// Environment config: .env is optional, real env vars win.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}

	tokenSecret := os.Getenv("TOKEN_SECRET")
	if tokenSecret == "" {
		log.Fatal("TOKEN_SECRET is required: the identity provider and this server must share it")
	}

	// Institution-local time governs what "today" means for reservations.
	loc := time.Local
	if tz := os.Getenv("INSTITUTION_TZ"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("Invalid INSTITUTION_TZ %q: %v", tz, err)
		}
		loc = l
	}

	log.Printf("Starting reservation server (version: %s, timezone: %s)...", version, loc)

	// Initialize database
	db, err := storage.NewDB(*dataDir + "/reservations.db")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	// Run migrations
	if err := storage.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations complete")

	// Initialize WebSocket hub (the change notifier transport)
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize repositories and services
	reservationRepo := storage.NewReservationRepository(db)
	kindRepo := storage.NewKindRepository(db)
	cat := catalog.NewService(kindRepo)
	broadcaster := websocket.NewEventBroadcaster(hub)
	notifier := notify.NewNotifier(notify.LogSender{})

	eng := engine.New(reservationRepo, kindRepo, cat, broadcaster, notifier, loc)

	// Day rollover: clients re-query availability when "today" advances.
	rollover := scheduler.NewRollover(hub, cat, loc)
	if err := rollover.Start(); err != nil {
		log.Printf("Warning: Failed to start rollover scheduler: %v", err)
	}

	// Initialize HTTP router
	router := api.NewRouter(api.Deps{
		DB:           db,
		Hub:          hub,
		Engine:       eng,
		Catalog:      cat,
		Kinds:        kindRepo,
		Reservations: reservationRepo,
		Auth:         middleware.NewAuth([]byte(tokenSecret)),
		StaticDir:    *staticDir,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         *addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", *addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	rollover.Stop()
	hub.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	url := "http://localhost" + addr + "/api/health"
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return http.ErrAbortHandler
	}
	return nil
}
