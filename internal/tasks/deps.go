// Package tasks implements the scheduled maintenance tasks for the
// challengekeeper datastore, including task definitions, dependencies, and
// registration.
package tasks

import (
	"log/slog"

	"challengekeeper/internal/config"
	"challengekeeper/internal/database"
)

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  database.Store
	Config *config.Config
}
