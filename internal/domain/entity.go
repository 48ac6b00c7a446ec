package domain

import "github.com/google/uuid"

// EntityKind identifies the type of a domain entity referenced by an
// activity event or a notification.
type EntityKind string

// Entity kinds known to the pipeline.
const (
	EntityTask       EntityKind = "task"
	EntityProject    EntityKind = "project"
	EntityTeam       EntityKind = "team"
	EntityUser       EntityKind = "user"
	EntityComment    EntityKind = "comment"
	EntityAttachment EntityKind = "attachment"
)

// EntityRef is a loose reference to a domain entity. Notifications and
// activity events point at their subject through an EntityRef rather than a
// foreign key so the subject may be deleted without touching historic rows.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

// NewEntityRef builds a reference to the given entity.
func NewEntityRef(kind EntityKind, id uuid.UUID) *EntityRef {
	return &EntityRef{Kind: kind, ID: id}
}
