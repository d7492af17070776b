// Package main is the entry point for hodl, a personal portfolio tracker.
// It derives positions from a brokerage transaction export, prints them,
// and keeps a local cache of historical prices for every held security.
//
// With SYNC_SCHEDULE unset the pass runs once and the exit status reports
// whether every step and every ticker succeeded. With a schedule the pass
// runs immediately and then on every tick until SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/aristath/hodl/internal/app"
	"github.com/aristath/hodl/internal/config"
	"github.com/aristath/hodl/internal/di"
	"github.com/aristath/hodl/internal/scheduler"
	"github.com/aristath/hodl/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Error().Err(err).Msg("Failed to load configuration")
		return 1
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})
	logger.SetGlobalLogger(log)

	container, err := di.Wire(cfg, os.Stdout, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to wire dependencies")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cfg.Daemon() {
		if err := container.App.Run(ctx); err != nil {
			var syncErr *app.SyncError
			if errors.As(err, &syncErr) {
				log.Error().Err(err).Int("failed", syncErr.Failed).Msg("Some tickers failed to sync")
			} else {
				log.Error().Err(err).Msg("Portfolio pass failed")
			}
			return 1
		}
		return 0
	}

	sched := scheduler.New(log)
	job := scheduler.NewHistorySyncJob(ctx, container.App, log)
	if err := sched.AddJob(cfg.SyncSchedule, job); err != nil {
		log.Error().Err(err).Str("schedule", cfg.SyncSchedule).Msg("Failed to register sync job")
		return 1
	}

	if err := sched.RunNow(job); err != nil {
		log.Error().Err(err).Msg("Initial portfolio pass failed")
	}
	sched.Start()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	sched.Stop()
	return 0
}
