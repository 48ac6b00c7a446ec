// Package dispatch implements the async execution boundary of the
// notification pipeline: a durable task queue consumed by a bounded worker
// pool, with bounded retries, exponential backoff with jitter, and crash
// recovery of unfinished tasks.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a dispatch task.
type TaskStatus string

// Possible task status values.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task kind constants.
const (
	// KindNotification creates a single notification row.
	KindNotification = "notification"

	// KindNotificationBulk creates one notification row per recipient in
	// the payload's recipient list.
	KindNotificationBulk = "notification_bulk"

	// KindEmail renders and sends one email, gated by the recipient's
	// notification preference.
	KindEmail = "email"
)

// Task represents a unit of background work to be processed.
type Task interface {
	// ID returns the task's unique identifier.
	ID() uuid.UUID

	// Kind returns the task kind identifier.
	Kind() string

	// Payload returns the task data as a byte slice.
	Payload() []byte

	// Execute runs the task's side effect. A returned error marks the
	// attempt failed and subject to the dispatcher's retry policy.
	Execute(ctx context.Context) error
}

// TaskRecord is the durable row backing a task, as persisted by the
// TaskStore. Recovery rehydrates executable tasks from records via the
// TaskFactory.
type TaskRecord struct {
	ID         uuid.UUID
	Kind       string
	Payload    []byte
	Status     TaskStatus
	RetryCount int
	LastError  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TaskStore defines the interface for persisting dispatch tasks.
type TaskStore interface {
	// SaveTask persists a new task in pending state.
	SaveTask(ctx context.Context, task Task) error

	// UpdateTaskStatus updates a task's status, retry count and last error.
	UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status TaskStatus, retryCount int, errorMsg string) error

	// GetPendingTasks retrieves all tasks with "pending" status.
	GetPendingTasks(ctx context.Context) ([]TaskRecord, error)

	// GetProcessingTasks retrieves tasks with "processing" status.
	// If olderThan is non-zero, only returns tasks that have been in this
	// state longer than the specified duration.
	GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]TaskRecord, error)
}

// TaskFactory rehydrates an executable task from its durable record,
// rebinding the stores and senders the task's side effect needs.
type TaskFactory interface {
	Rehydrate(record TaskRecord) (Task, error)
}
