package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
)

// TeamStore defines the read-side interface over teams consumed by the
// fan-out engine when team membership changes.
type TeamStore interface {
	// GetByID retrieves a team by its ID.
	// Returns ErrTeamNotFound if the team does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error)

	// ListMemberIDs returns the user IDs of all members of the team.
	ListMemberIDs(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error)
}
