package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/audit"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/config"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/dispatch"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/email"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/fanout"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/pipeline"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/platform/postgres"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/scheduler"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore          store.UserStore
	taskStore          store.TaskStore
	projectStore       store.ProjectStore
	teamStore          store.TeamStore
	notificationStore  store.NotificationStore
	activityEventStore store.ActivityEventStore
	dispatchStore      dispatch.TaskStore

	// Email
	renderer *email.Renderer
	sender   email.Sender

	// Pipeline
	recorder   *audit.Recorder
	dispatcher *dispatch.Dispatcher
	engine     *fanout.Engine
	pipeline   *pipeline.Pipeline
	scheduler  *scheduler.Scheduler
}

// newApplication creates a new application instance with all dependencies
// initialized. The dispatcher and scheduler are started here; Run blocks on
// the HTTP server and cleanup stops them again.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	// Initialize stores
	app.userStore = postgres.NewPostgresUserStore(db)
	app.taskStore = postgres.NewPostgresTaskStore(db)
	app.projectStore = postgres.NewPostgresProjectStore(db)
	app.teamStore = postgres.NewPostgresTeamStore(db)
	app.notificationStore = postgres.NewPostgresNotificationStore(db)
	app.activityEventStore = postgres.NewPostgresActivityEventStore(db)
	app.dispatchStore = postgres.NewPostgresDispatchStore(db)

	// Initialize email rendering and transport
	var err error
	app.renderer, err = email.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email renderer: %w", err)
	}

	if cfg.Email.Host != "" {
		app.sender, err = email.NewSMTPSender(email.SMTPConfig{
			Host:        cfg.Email.Host,
			Port:        cfg.Email.Port,
			Username:    cfg.Email.Username,
			Password:    cfg.Email.Password,
			FromAddress: cfg.Email.FromAddress,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SMTP sender: %w", err)
		}
		logger.Info("SMTP sender initialized", "host", cfg.Email.Host, "port", cfg.Email.Port)
	} else {
		app.sender = &email.LogSender{Logger: logger}
		logger.Warn("no SMTP host configured, emails will be logged instead of sent")
	}

	// Initialize the audit recorder
	app.recorder = audit.NewRecorder(app.activityEventStore, logger)

	// Initialize the dispatcher with its rehydration factory
	factory := dispatch.NewFactory(
		app.userStore,
		app.notificationStore,
		app.renderer,
		app.sender,
		logger,
	)
	app.dispatcher = dispatch.NewDispatcher(app.dispatchStore, factory, dispatcherConfig(cfg), logger)
	app.dispatcher.SetErrorHandler(func(task dispatch.Task, err error) {
		logger.Error("dispatch task failed permanently",
			"task_id", task.ID(),
			"task_kind", task.Kind(),
			"error", err)
	})
	if err := app.dispatcher.Start(); err != nil {
		return nil, fmt.Errorf("failed to start dispatcher: %w", err)
	}

	// Initialize the fan-out engine
	app.engine = fanout.NewEngine(
		app.dispatcher,
		app.userStore,
		app.taskStore,
		app.projectStore,
		app.teamStore,
		app.notificationStore,
		app.renderer,
		app.sender,
		fanout.Config{
			SiteName:    cfg.Email.SiteName,
			FrontendURL: cfg.Email.FrontendURL,
		},
		logger,
	)

	// Initialize the mutation pipeline
	app.pipeline = pipeline.New(app.recorder, app.engine, logger)

	// Initialize and start the scheduled jobs
	app.scheduler = scheduler.New(
		app.userStore,
		app.taskStore,
		app.projectStore,
		app.notificationStore,
		app.dispatcher,
		app.renderer,
		app.sender,
		scheduler.Config{
			SiteName:              cfg.Email.SiteName,
			CleanupRetentionDays:  cfg.Jobs.CleanupRetentionDays,
			ArchivalStalenessDays: cfg.Jobs.ArchivalStalenessDays,
		},
		logger,
	)
	app.scheduler.Start()

	logger.Info("Application initialized successfully")
	return app, nil
}

// dispatcherConfig merges the configured dispatch settings over the
// defaults.
func dispatcherConfig(cfg *config.Config) dispatch.DispatcherConfig {
	dc := dispatch.DefaultDispatcherConfig()
	if cfg.Dispatch.WorkerCount > 0 {
		dc.WorkerCount = cfg.Dispatch.WorkerCount
	}
	if cfg.Dispatch.QueueSize > 0 {
		dc.QueueSize = cfg.Dispatch.QueueSize
	}
	if cfg.Dispatch.MaxRetries > 0 {
		dc.MaxRetries = cfg.Dispatch.MaxRetries
	}
	if cfg.Dispatch.BaseDelay > 0 {
		dc.Backoff.BaseDelay = cfg.Dispatch.BaseDelay
	}
	if cfg.Dispatch.MaxDelay > 0 {
		dc.Backoff.MaxDelay = cfg.Dispatch.MaxDelay
	}
	if cfg.Dispatch.ExecTimeout > 0 {
		dc.ExecTimeout = cfg.Dispatch.ExecTimeout
	}
	if cfg.Dispatch.StuckTaskAge > 0 {
		dc.StuckTaskAge = cfg.Dispatch.StuckTaskAge
	}
	return dc
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.dispatcher != nil {
		app.dispatcher.Stop()
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}

// shutdownTimeout bounds how long graceful shutdown may take.
const shutdownTimeout = 10 * time.Second
