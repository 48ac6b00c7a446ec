package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
)

// UserStore defines the read-side interface over users that the pipeline
// needs: resolving recipients and enumerating active users for the
// scheduled jobs. Account management lives outside the pipeline.
type UserStore interface {
	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByIDs retrieves the users for the given IDs. Missing IDs are
	// silently omitted from the result; callers that care compare lengths.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error)

	// ListActive returns every active user.
	ListActive(ctx context.Context) ([]*domain.User, error)
}
