package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
)

// TaskStore defines the read-side interface over tasks consumed by the
// fan-out engine, the reminder job and the digest job.
type TaskStore interface {
	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListOpenByAssignee returns the user's tasks that are not done
	// (todo, in_progress or blocked).
	ListOpenByAssignee(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// ListCompletedByUser returns tasks assigned to or created by the user
	// that reached done within [since, until).
	ListCompletedByUser(ctx context.Context, userID uuid.UUID, since, until time.Time) ([]*domain.Task, error)

	// ListCreatedByUser returns tasks assigned to or created by the user
	// that were created within [since, until).
	ListCreatedByUser(ctx context.Context, userID uuid.UUID, since, until time.Time) ([]*domain.Task, error)

	// CountIncompleteByProject returns how many of the project's tasks are
	// not done.
	CountIncompleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}
