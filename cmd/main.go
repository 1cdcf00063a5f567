// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Shivanand-hulikatti/trainbot/internal/command"
	"github.com/Shivanand-hulikatti/trainbot/internal/config"
	"github.com/Shivanand-hulikatti/trainbot/internal/database"
	"github.com/Shivanand-hulikatti/trainbot/internal/handler"
	"github.com/Shivanand-hulikatti/trainbot/internal/notify"
	"github.com/Shivanand-hulikatti/trainbot/internal/observability"
	"github.com/Shivanand-hulikatti/trainbot/internal/repository"
	"github.com/Shivanand-hulikatti/trainbot/internal/service"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every layer and blocks until a signal or a server error,
// so deferred cleanup always executes before the process exits.
func run() error {
	// ── 1. Configuration & logger ─────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logs.GetLoggerFromString(cfg.LogLevel)
	observability.RegisterMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 2. Optional departure history on PostgreSQL ───────────────────────
	var (
		journal service.Journal
		history handler.History
	)
	if cfg.HistoryEnabled {
		pool, err := database.NewPool(ctx, cfg.Database(), log)
		if err != nil {
			return fmt.Errorf("database: %w", err)
		}
		defer pool.Close()

		repo := repository.NewHistoryRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			return err
		}
		journal, history = repo, repo
		log.Info("Connected to PostgreSQL, departure history enabled")
	}

	// ── 3. Wire up layers ────────────────────────────────────────────────
	var notifier service.Notifier = notify.NewLog(log)
	if cfg.SlackWebhookURL != "" {
		notifier = notify.NewWebhook(cfg.SlackWebhookURL, cfg.NotifyTimeout, log)
	}
	station := service.NewStation(log, notifier, journal,
		service.WithTickInterval(cfg.TickInterval),
		service.WithMaxMinutes(cfg.MaxMinutes),
	)
	defer station.Close()

	router := handler.NewRouter(log,
		handler.NewDepartureHandler(station, history),
		handler.NewSlashHandler(command.NewDispatcher(station, log)),
	)

	// ── 4. Serve until SIGINT / SIGTERM ───────────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Server listening", "address", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}
