package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pagesafe/pagesafe-backend/internal/uploads"
	"github.com/pagesafe/pagesafe-backend/pkg/config"
	"github.com/pagesafe/pagesafe-backend/pkg/db"
	"github.com/pagesafe/pagesafe-backend/pkg/logger"
)

// The worker reaps uploads whose ingestion job was lost, typically after an
// API restart, so they do not sit in PENDING or PROCESSING forever.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	repo := uploads.NewRepository(dbClient.DB())

	logCtx := logg.WithFields(ctx, map[string]any{
		"stale_after":   cfg.Ingest.StaleAfter.String(),
		"reap_interval": cfg.Ingest.ReapInterval.String(),
	})
	logg.Info(logCtx, "starting stale upload reaper")

	runReaper(ctx, logg, repo, cfg.Ingest.StaleAfter, cfg.Ingest.ReapInterval)
	logg.Info(ctx, "worker shutting down gracefully")
}

func runReaper(ctx context.Context, logg *logger.Logger, repo *uploads.Repository, staleAfter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			affected, err := repo.FailStaleUploads(ctx, staleAfter)
			if err != nil {
				logg.Error(ctx, "reaping stale uploads", err)
				continue
			}
			if affected > 0 {
				logg.Warn(logg.WithField(ctx, "reaped", affected), "parked stale uploads as failed")
			}
		}
	}
}
