package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActivityAction classifies the action recorded by an activity event.
type ActivityAction string

// Activity action values.
const (
	ActionCreated         ActivityAction = "created"
	ActionUpdated         ActivityAction = "updated"
	ActionDeleted         ActivityAction = "deleted"
	ActionViewed          ActivityAction = "viewed"
	ActionAssigned        ActivityAction = "assigned"
	ActionUnassigned      ActivityAction = "unassigned"
	ActionStatusChanged   ActivityAction = "status_changed"
	ActionPriorityChanged ActivityAction = "priority_changed"
	ActionMemberAdded     ActivityAction = "member_added"
	ActionMemberRemoved   ActivityAction = "member_removed"
	ActionCommentAdded    ActivityAction = "comment_added"
	ActionAttachmentAdded ActivityAction = "attachment_added"
	ActionLogin           ActivityAction = "login"
	ActionLogout          ActivityAction = "logout"
)

var validActions = map[ActivityAction]bool{
	ActionCreated:         true,
	ActionUpdated:         true,
	ActionDeleted:         true,
	ActionViewed:          true,
	ActionAssigned:        true,
	ActionUnassigned:      true,
	ActionStatusChanged:   true,
	ActionPriorityChanged: true,
	ActionMemberAdded:     true,
	ActionMemberRemoved:   true,
	ActionCommentAdded:    true,
	ActionAttachmentAdded: true,
	ActionLogin:           true,
	ActionLogout:          true,
}

// IsValid reports whether a is a known activity action.
func (a ActivityAction) IsValid() bool {
	return validActions[a]
}

// ActivityEvent is the durable audit record of one action performed on the
// system. Events are append-only: once created they are never updated or
// deleted by ordinary users, and they are listed by timestamp descending.
//
// ActorID is nil for system actions. Subject is nil when the action has no
// subject entity (e.g. login). Metadata is a free-form snapshot of whatever
// the caller wants preserved: a title, a field diff, a changed-field list.
type ActivityEvent struct {
	ID        uuid.UUID      `json:"id"`
	ActorID   *uuid.UUID     `json:"actor_id,omitempty"`
	Action    ActivityAction `json:"action"`
	Subject   *EntityRef     `json:"subject,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	IPAddress string         `json:"ip_address,omitempty"`
	UserAgent string         `json:"user_agent,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewActivityEvent creates an audit record for the given action.
// actorID may be nil for system actions, subject may be nil when the action
// has no subject entity.
func NewActivityEvent(
	actorID *uuid.UUID,
	action ActivityAction,
	subject *EntityRef,
	metadata map[string]any,
) (*ActivityEvent, error) {
	e := &ActivityEvent{
		ID:        uuid.New(),
		ActorID:   actorID,
		Action:    action,
		Subject:   subject,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}

	if err := e.Validate(); err != nil {
		return nil, err
	}

	return e, nil
}

// Validate checks the event's invariants.
func (e *ActivityEvent) Validate() error {
	if e.ID == uuid.Nil {
		return ErrInvalidID
	}
	if !e.Action.IsValid() {
		return ErrInvalidAction
	}
	return nil
}
