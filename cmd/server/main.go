// Package main implements the entry point for the activity and
// notification pipeline server: it observes entity mutations, records the
// activity log, fans out notifications and emails, and runs the scheduled
// batch jobs.
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/config"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/platform/logger"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/platform/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	appLogger.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupDatabase(cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	if err := postgres.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	appLogger.Info("Database migrations applied")

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(context.Background())
}
