// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/handler"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository/sqlite"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ── 1. Open the store ────────────────────────────────────────────────
	var (
		events        service.EventStore
		registrations service.RegistrationStore
	)
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		events = sqlite.NewEventRepository(db)
		registrations = sqlite.NewRegistrationRepository(db)
		log.Printf("✓ Opened SQLite store at %s", cfg.SQLitePath)
	default:
		pool, err := database.NewPool(ctx, cfg.Postgres)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		events = repository.NewEventRepository(pool)
		registrations = repository.NewRegistrationRepository(pool)
		log.Println("✓ Connected to PostgreSQL")
	}
	if cfg.HostPasscodeHash == "" {
		log.Println("HOST_PASSCODE_HASH is not set; organizer routes are unreachable")
	}

	// ── 2. Wire up layers ────────────────────────────────────────────────
	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.HostPasscodeHash, cfg.HostTokenTTL)
	eventSvc := service.NewEventService(events, registrations)
	eventHandler := handler.NewEventHandler(eventSvc, issuer)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := handler.NewRouter(eventHandler)

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("✓ Server listening on http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server…")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("graceful shutdown failed: %v", err)
	}
	log.Println("server stopped")
}
