package domain

import (
	"time"

	"github.com/google/uuid"
)

// Team is the pipeline's read model of a team.
type Team struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Snapshot serializes the team's tracked fields for change detection.
func (t *Team) Snapshot() map[string]string {
	return map[string]string{
		"name":        t.Name,
		"description": t.Description,
		"owner":       uuidField(t.OwnerID),
	}
}

// TeamMember links a user to a team with a role.
type TeamMember struct {
	TeamID   uuid.UUID `json:"team_id"`
	UserID   uuid.UUID `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
