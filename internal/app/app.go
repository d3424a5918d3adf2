// Package app implements lifecycle management and component orchestration
// for the challengekeeper datastore service.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"challengekeeper/internal/config"
	"challengekeeper/internal/database"
)

// App represents the datastore service and manages its components' lifecycle.
type App struct {
	logger    *slog.Logger
	cfg       *config.Config
	db        *sqlx.DB
	store     database.Store
	scheduler *Scheduler
}

// New creates a new App instance with all required dependencies.
func New(
	logger *slog.Logger,
	cfg *config.Config,
	db *sqlx.DB,
	store database.Store,
	scheduler *Scheduler,
) *App {
	return &App{
		logger:    logger.With("component", "app"),
		cfg:       cfg,
		db:        db,
		store:     store,
		scheduler: scheduler,
	}
}

// Run starts all components and blocks until the context is cancelled or a
// component fails. Shutdown is graceful: the scheduler finishes running jobs
// before Run returns.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("Starting challengekeeper...")

	if err := a.store.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting scheduler...")
		if err := a.scheduler.Start(); err != nil {
			a.logger.Error("Failed to start scheduler", "error", err)
			return fmt.Errorf("failed to start scheduler: %w", err)
		}

		<-gCtx.Done()
		a.logger.Info("Shutdown signal received, stopping scheduler...")

		if err := a.scheduler.Stop(); err != nil {
			a.logger.Error("Error stopping scheduler", "error", err)
		}

		return nil
	})

	a.logger.Info("challengekeeper running. Waiting for shutdown signal or error...")
	err := g.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Error("challengekeeper stopped due to error", "error", err)
		return err
	}

	a.logger.Info("challengekeeper stopped gracefully.")
	return nil
}
