// Package app wires the monitor and the maintenance scheduler together and
// manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/errgroup"

	"tradewatch/internal/config"
	"tradewatch/internal/logstore"
	"tradewatch/internal/monitor"
)

// App owns the polling monitor and the gocron maintenance scheduler.
type App struct {
	logger    *slog.Logger
	monitor   *monitor.Monitor
	scheduler gocron.Scheduler
}

// New creates the application, registering the log-store maintenance job
// when it is enabled in the configuration.
func New(
	logger *slog.Logger,
	mon *monitor.Monitor,
	store logstore.Store,
	cfg config.MaintenanceConfig,
) (*App, error) {
	log := logger.With("component", "app")

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	if cfg.Enabled {
		_, err := scheduler.NewJob(
			gocron.CronJob(cfg.Schedule, true),
			gocron.NewTask(func(ctx context.Context) {
				log.Info("Running scheduled task", "task_name", "logstore_maintenance")
				startTime := time.Now()
				if taskErr := store.Vacuum(ctx); taskErr != nil {
					log.Error("Scheduled task failed", "task_name", "logstore_maintenance", "error", taskErr)
				}
				log.Info("Finished scheduled task", "task_name", "logstore_maintenance", "duration", time.Since(startTime))
			}, context.Background()),
			gocron.WithName("logstore_maintenance"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule maintenance task: %w", err)
		}
		log.Info("Scheduled task", "task_name", "logstore_maintenance", "schedule", cfg.Schedule)
	}

	return &App{
		logger:    log,
		monitor:   mon,
		scheduler: scheduler,
	}, nil
}

// Run starts the monitor and the scheduler, blocking until ctx is
// cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting application...")

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.monitor.Run(gCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("monitor stopped: %w", err)
		}
		return err
	})

	g.Go(func() error {
		a.scheduler.Start()
		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")
		if err := a.scheduler.Shutdown(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("Application stopped due to error", "error", err)
		return err
	}

	a.logger.Info("Application stopped gracefully.")
	return nil
}
