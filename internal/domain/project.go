package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

// Project status values.
const (
	ProjectStatusPlanning  ProjectStatus = "planning"
	ProjectStatusActive    ProjectStatus = "active"
	ProjectStatusOnHold    ProjectStatus = "on_hold"
	ProjectStatusCompleted ProjectStatus = "completed"
	ProjectStatusCancelled ProjectStatus = "cancelled"
)

// Project is the pipeline's read model of a project. The archival job sets
// ArchivedAt once a completed project has gone stale; the marker is checked
// before writing so re-running the job never re-archives.
type Project struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      ProjectStatus `json:"status"`
	TeamID      *uuid.UUID    `json:"team_id,omitempty"`
	OwnerID     *uuid.UUID    `json:"owner_id,omitempty"`
	ArchivedAt  *time.Time    `json:"archived_at,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsArchived reports whether the archival job has already handled this
// project.
func (p *Project) IsArchived() bool {
	return p.ArchivedAt != nil
}

// Snapshot serializes the project's tracked fields for change detection.
func (p *Project) Snapshot() map[string]string {
	return map[string]string{
		"name":        p.Name,
		"description": p.Description,
		"status":      string(p.Status),
		"team":        uuidField(p.TeamID),
		"owner":       uuidField(p.OwnerID),
	}
}

// ProjectMember links a user to a project with a role. Membership rows are
// what the fan-out engine expands "all project members" against.
type ProjectMember struct {
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joined_at"`
}
