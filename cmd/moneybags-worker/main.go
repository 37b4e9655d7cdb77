package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"moneybags/internal/amqp"
	"moneybags/internal/config"
	"moneybags/internal/core"
	"moneybags/internal/log"
	"moneybags/internal/services"
	"moneybags/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent("materialize-worker")
	log.SetDefault(logger)

	logger.Info("Starting materialize-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Transaction events are best-effort: without a broker the worker
	// still materializes, it just doesn't notify downstream consumers.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
			events = nil
		} else {
			defer events.Close()
			logger.Info("AMQP client initialized")
		}
	} else {
		logger.Info("AMQP disabled - transaction events will not be published")
	}

	ledger := services.NewLedgerService(repo, events)
	materializer := services.NewMaterializer(repo, ledger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Materialization worker configured",
		"interval", cfg.MaterializeInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(cfg.MaterializeInterval)
		defer ticker.Stop()

		// Run once on startup, then on every tick
		runMaterialization(ctx, logger, materializer, time.Now())

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				runMaterialization(ctx, logger, materializer, now)
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Materialize-worker shutdown complete")
}

func runMaterialization(ctx context.Context, logger *log.Logger, m *services.Materializer, now time.Time) {
	asOf := core.NewDate(now.Year(), int(now.Month()), now.Day())
	created, err := m.MaterializeDue(ctx, asOf)
	if err != nil {
		logger.Error("Materialization run failed", "error", err, "as_of", asOf.Format("2006-01-02"))
		return
	}
	logger.Info("Materialization run complete",
		"as_of", asOf.Format("2006-01-02"),
		"transactions_created", len(created))
}
