package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// PostgresTaskStore implements store.TaskStore using PostgreSQL. All
// methods are reads; task CRUD belongs to the external application layer.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

const taskColumns = `id, title, description, status, priority, project_id, assignee_id, created_by, due_date, created_at, updated_at`

// GetByID retrieves a task by its ID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

// ListOpenByAssignee returns the user's tasks that are not done.
func (s *PostgresTaskStore) ListOpenByAssignee(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE assignee_id = $1 AND status <> $2
		ORDER BY due_date ASC NULLS LAST, created_at ASC
	`
	return s.list(ctx, query, userID, domain.TaskStatusDone)
}

// ListCompletedByUser returns the user's tasks that reached done within
// [since, until). Completion time is approximated by updated_at, which the
// CRUD layer touches on the status write.
func (s *PostgresTaskStore) ListCompletedByUser(ctx context.Context, userID uuid.UUID, since, until time.Time) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE (assignee_id = $1 OR created_by = $1)
		  AND status = $2
		  AND updated_at >= $3 AND updated_at < $4
		ORDER BY updated_at DESC
	`
	return s.list(ctx, query, userID, domain.TaskStatusDone, since, until)
}

// ListCreatedByUser returns the user's tasks created within [since, until).
func (s *PostgresTaskStore) ListCreatedByUser(ctx context.Context, userID uuid.UUID, since, until time.Time) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE (assignee_id = $1 OR created_by = $1)
		  AND created_at >= $2 AND created_at < $3
		ORDER BY created_at DESC
	`
	return s.list(ctx, query, userID, since, until)
}

// CountIncompleteByProject returns how many of the project's tasks are not
// done.
func (s *PostgresTaskStore) CountIncompleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM tasks WHERE project_id = $1 AND status <> $2`
	if err := s.db.QueryRowContext(ctx, query, projectID, domain.TaskStatusDone).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

func (s *PostgresTaskStore) list(ctx context.Context, query string, args ...any) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}
	return tasks, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		description sql.NullString
		projectID   uuid.NullUUID
		assigneeID  uuid.NullUUID
		createdBy   uuid.NullUUID
		dueDate     sql.NullTime
	)
	err := row.Scan(
		&task.ID,
		&task.Title,
		&description,
		&task.Status,
		&task.Priority,
		&projectID,
		&assigneeID,
		&createdBy,
		&dueDate,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	if projectID.Valid {
		id := projectID.UUID
		task.ProjectID = &id
	}
	if assigneeID.Valid {
		id := assigneeID.UUID
		task.AssigneeID = &id
	}
	if createdBy.Valid {
		id := createdBy.UUID
		task.CreatedBy = &id
	}
	if dueDate.Valid {
		t := dueDate.Time.UTC()
		task.DueDate = &t
	}
	return &task, nil
}
