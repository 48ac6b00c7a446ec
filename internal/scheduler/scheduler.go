// Package scheduler runs the recurring batch jobs of the notification
// pipeline: daily task reminders, the weekly digest, cleanup of stale read
// notifications and archival of dormant completed projects. Every job is
// re-runnable: running one twice in a row never duplicates side effects
// beyond what the job's own idempotency notes allow.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/dispatch"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/email"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// Submitter is the slice of the dispatcher the scheduler needs for the
// archival job's member notifications.
type Submitter interface {
	Submit(ctx context.Context, task dispatch.Task) error
}

// Config tunes the scheduled jobs.
type Config struct {
	// SiteName appears in outbound reminder and digest mail.
	SiteName string

	// CleanupRetentionDays is how old a read notification must be before
	// cleanup deletes it. Defaults to 30.
	CleanupRetentionDays int

	// ArchivalStalenessDays is how long a completed project must sit
	// untouched before archival considers it. Defaults to 90.
	ArchivalStalenessDays int

	// DigestListCap bounds each list in the weekly digest. The counts in the
	// digest still reflect the full totals. Defaults to 10.
	DigestListCap int
}

func (c Config) retention() time.Duration {
	days := c.CleanupRetentionDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c Config) staleness() time.Duration {
	days := c.ArchivalStalenessDays
	if days <= 0 {
		days = 90
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c Config) digestCap() int {
	if c.DigestListCap <= 0 {
		return 10
	}
	return c.DigestListCap
}

// Scheduler holds the dependencies of the batch jobs. The clock is
// injected so window boundaries are testable.
type Scheduler struct {
	users         store.UserStore
	tasks         store.TaskStore
	projects      store.ProjectStore
	notifications store.NotificationStore
	dispatcher    Submitter
	renderer      *email.Renderer
	sender        email.Sender
	config        Config
	logger        *slog.Logger
	now           func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler.
func New(
	users store.UserStore,
	tasks store.TaskStore,
	projects store.ProjectStore,
	notifications store.NotificationStore,
	dispatcher Submitter,
	renderer *email.Renderer,
	sender email.Sender,
	config Config,
	logger *slog.Logger,
) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		users:         users,
		tasks:         tasks,
		projects:      projects,
		notifications: notifications,
		dispatcher:    dispatcher,
		renderer:      renderer,
		sender:        sender,
		config:        config,
		logger:        logger.With(slog.String("component", "scheduler")),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type scheduledJob struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context)
}

// jobs returns the recurring jobs and their cadences: reminders daily,
// digest and cleanup weekly, archival monthly.
func (s *Scheduler) jobs() []scheduledJob {
	return []scheduledJob{
		{"daily_reminders", 24 * time.Hour, func(ctx context.Context) {
			summary := s.RunDailyReminders(ctx)
			s.logger.Info("daily reminders finished",
				"users_examined", summary.UsersExamined,
				"emails_sent", summary.EmailsSent,
				"skipped", summary.Skipped,
				"failures", summary.Failures)
		}},
		{"weekly_digest", 7 * 24 * time.Hour, func(ctx context.Context) {
			summary := s.RunWeeklyDigest(ctx)
			s.logger.Info("weekly digest finished",
				"users_examined", summary.UsersExamined,
				"emails_sent", summary.EmailsSent,
				"skipped", summary.Skipped,
				"failures", summary.Failures)
		}},
		{"cleanup", 7 * 24 * time.Hour, func(ctx context.Context) {
			summary, err := s.RunCleanup(ctx)
			if err != nil {
				s.logger.Error("cleanup failed", "error", err)
				return
			}
			s.logger.Info("cleanup finished", "deleted", summary.Deleted)
		}},
		{"archival", 30 * 24 * time.Hour, func(ctx context.Context) {
			summary := s.RunArchival(ctx)
			s.logger.Info("archival finished",
				"examined", summary.Examined,
				"archived", summary.Archived,
				"skipped_incomplete", summary.SkippedIncomplete,
				"skipped_archived", summary.SkippedAlreadyArchived,
				"failures", summary.Failures)
		}},
	}
}

// Start launches the recurring jobs on their intervals.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	for _, job := range s.jobs() {
		s.runEvery(ctx, job.interval, job.name, job.run)
	}
}

// Stop halts the recurring jobs. A job mid-run finishes first.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) runEvery(ctx context.Context, interval time.Duration, name string, job func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.logger.Info("running scheduled job", "job", name)
				job(ctx)
			}
		}
	}()
}
