package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
)

// ProjectStore defines the interface over projects consumed by the fan-out
// engine, the digest job and the archival job. The only write the pipeline
// performs is the archival marker, expressed as a targeted update.
type ProjectStore interface {
	// GetByID retrieves a project by its ID.
	// Returns ErrProjectNotFound if the project does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// ListMemberIDs returns the user IDs of all members of the project.
	ListMemberIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error)

	// ListActiveByMember returns the active projects the user belongs to.
	ListActiveByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error)

	// ListCompletedBefore returns completed, not-yet-archived projects whose
	// updated_at is older than the cutoff.
	ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Project, error)

	// MarkArchived sets the project's archival marker. The write targets
	// only the marker column and is a no-op when already set, so re-running
	// archival never double-archives. Reports whether the row changed.
	MarkArchived(ctx context.Context, projectID uuid.UUID, archivedAt time.Time) (bool, error)
}
