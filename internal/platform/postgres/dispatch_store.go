package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/dispatch"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/platform/logger"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// PostgresDispatchStore implements dispatch.TaskStore using PostgreSQL.
// The dispatch_tasks table is the durable half of the queue: the in-memory
// channel only buffers, recovery always starts from these rows.
type PostgresDispatchStore struct {
	db store.DBTX
}

// NewPostgresDispatchStore creates a new PostgresDispatchStore.
func NewPostgresDispatchStore(db store.DBTX) *PostgresDispatchStore {
	return &PostgresDispatchStore{db: db}
}

// SaveTask persists a task in pending state.
func (s *PostgresDispatchStore) SaveTask(ctx context.Context, task dispatch.Task) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO dispatch_tasks (id, kind, payload, status, retry_count, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 0, '', $5, $5)
	`
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, query,
		task.ID(),
		task.Kind(),
		task.Payload(),
		dispatch.TaskStatusPending,
		now,
	)
	if err != nil {
		log.Error("failed to save dispatch task",
			"task_id", task.ID(),
			"task_kind", task.Kind(),
			"error", err)
		return MapError(err)
	}

	return nil
}

// UpdateTaskStatus updates a task's status, retry count and last error.
// A missing row is treated as a no-op: the task may have been cleaned up
// between execution and the status write.
func (s *PostgresDispatchStore) UpdateTaskStatus(ctx context.Context, taskID uuid.UUID, status dispatch.TaskStatus, retryCount int, errorMsg string) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE dispatch_tasks
		SET status = $1, retry_count = $2, last_error = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(ctx, query,
		status,
		retryCount,
		errorMsg,
		time.Now().UTC(),
		taskID,
	)
	if err != nil {
		log.Error("failed to update dispatch task status",
			"task_id", taskID,
			"status", status,
			"error", err)
		return MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		log.Warn("no dispatch task found to update", "task_id", taskID)
	}

	return nil
}

// GetPendingTasks retrieves all tasks with "pending" status, oldest first.
func (s *PostgresDispatchStore) GetPendingTasks(ctx context.Context) ([]dispatch.TaskRecord, error) {
	return s.getByStatus(ctx, dispatch.TaskStatusPending, 0)
}

// GetProcessingTasks retrieves tasks with "processing" status, optionally
// only those untouched for longer than olderThan.
func (s *PostgresDispatchStore) GetProcessingTasks(ctx context.Context, olderThan time.Duration) ([]dispatch.TaskRecord, error) {
	return s.getByStatus(ctx, dispatch.TaskStatusProcessing, olderThan)
}

func (s *PostgresDispatchStore) getByStatus(ctx context.Context, status dispatch.TaskStatus, olderThan time.Duration) ([]dispatch.TaskRecord, error) {
	log := logger.FromContext(ctx)

	var (
		query string
		args  []any
	)
	if olderThan > 0 {
		query = `
			SELECT id, kind, payload, status, retry_count, last_error, created_at, updated_at
			FROM dispatch_tasks
			WHERE status = $1 AND updated_at < $2
			ORDER BY created_at ASC
		`
		args = []any{status, time.Now().UTC().Add(-olderThan)}
	} else {
		query = `
			SELECT id, kind, payload, status, retry_count, last_error, created_at, updated_at
			FROM dispatch_tasks
			WHERE status = $1
			ORDER BY created_at ASC
		`
		args = []any{status}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query dispatch tasks",
			"status", status,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []dispatch.TaskRecord
	for rows.Next() {
		var (
			record    dispatch.TaskRecord
			lastError sql.NullString
		)
		err := rows.Scan(
			&record.ID,
			&record.Kind,
			&record.Payload,
			&record.Status,
			&record.RetryCount,
			&lastError,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispatch task row: %w", err)
		}
		record.LastError = lastError.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dispatch task rows: %w", err)
	}

	return records, nil
}
