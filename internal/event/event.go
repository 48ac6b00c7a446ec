// Package event classifies entity mutations into semantic pipeline events.
// It sits between the change detector, which produces field-level diffs,
// and the fan-out engine, which resolves recipients for each event.
package event

import (
	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/audit"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
)

// Type is the semantic kind of a classified event.
type Type string

// Event types emitted by the classifier.
const (
	TypeCreated         Type = "created"
	TypeUpdated         Type = "updated"
	TypeDeleted         Type = "deleted"
	TypeStatusChanged   Type = "status_changed"
	TypePriorityChanged Type = "priority_changed"
	TypeAssigned        Type = "assigned"
	TypeUnassigned      Type = "unassigned"
	TypeMemberAdded     Type = "member_added"
	TypeMemberRemoved   Type = "member_removed"
	TypeCommentAdded    Type = "comment_added"
	TypeAttachmentAdded Type = "attachment_added"
)

// Change describes one entity mutation as reported by the CRUD layer.
type Change struct {
	// Kind is the kind of the mutated entity.
	Kind domain.EntityKind

	// Entity references the mutated entity itself.
	Entity domain.EntityRef

	// Parent references the owning entity for comments and attachments:
	// the classified event is scoped to the parent task, not the comment or
	// attachment row.
	Parent *domain.EntityRef

	// Member is set when the mutation adds or removes a membership row on a
	// project or team; it identifies the affected user.
	Member *uuid.UUID

	// ActorID is the user who caused the mutation, nil for system actions.
	ActorID *uuid.UUID

	// Created and Deleted flag whether the mutation created or deleted the
	// entity. When both are false the mutation was an update.
	Created bool
	Deleted bool

	// Diff holds the field-level changes for updates, as produced by
	// audit.Diff.
	Diff map[string]audit.FieldChange

	// Context carries display values already resolved by the caller (entity
	// titles, project names) for message interpolation and metadata
	// snapshots. For deletions it must be captured before cascading deletes
	// remove the referenced rows.
	Context map[string]any
}

// Event is one classified, semantically meaningful occurrence.
type Event struct {
	Type    Type
	Subject domain.EntityRef
	ActorID *uuid.UUID
	Member  *uuid.UUID
	Diff    map[string]audit.FieldChange
	Context map[string]any
}
