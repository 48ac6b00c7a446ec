package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a notification. The enumeration is closed and
// versioned: new values are additive and existing values are never
// repurposed, since stored historical rows are not migrated.
type NotificationType string

// Notification type values.
const (
	NotificationTaskAssigned            NotificationType = "task_assigned"
	NotificationTaskCompleted           NotificationType = "task_completed"
	NotificationTaskUpdated             NotificationType = "task_updated"
	NotificationTaskDueSoon             NotificationType = "task_due_soon"
	NotificationTaskOverdue             NotificationType = "task_overdue"
	NotificationTaskStatusChanged       NotificationType = "task_status_changed"
	NotificationTaskPriorityChanged     NotificationType = "task_priority_changed"
	NotificationTaskDependencyAdded     NotificationType = "task_dependency_added"
	NotificationTaskDependencyCompleted NotificationType = "task_dependency_completed"
	NotificationProjectUpdated          NotificationType = "project_updated"
	NotificationProjectMemberAdded      NotificationType = "project_member_added"
	NotificationProjectMemberRemoved    NotificationType = "project_member_removed"
	NotificationProjectStatusChanged    NotificationType = "project_status_changed"
	NotificationTeamMemberAdded         NotificationType = "team_member_added"
	NotificationTeamMemberRemoved       NotificationType = "team_member_removed"
	NotificationCommentAdded            NotificationType = "comment_added"
	NotificationAttachmentAdded         NotificationType = "attachment_added"
	NotificationWelcome                 NotificationType = "welcome"
	NotificationSystem                  NotificationType = "system"
)

var validNotificationTypes = map[NotificationType]bool{
	NotificationTaskAssigned:            true,
	NotificationTaskCompleted:           true,
	NotificationTaskUpdated:             true,
	NotificationTaskDueSoon:             true,
	NotificationTaskOverdue:             true,
	NotificationTaskStatusChanged:       true,
	NotificationTaskPriorityChanged:     true,
	NotificationTaskDependencyAdded:     true,
	NotificationTaskDependencyCompleted: true,
	NotificationProjectUpdated:          true,
	NotificationProjectMemberAdded:      true,
	NotificationProjectMemberRemoved:    true,
	NotificationProjectStatusChanged:    true,
	NotificationTeamMemberAdded:         true,
	NotificationTeamMemberRemoved:       true,
	NotificationCommentAdded:            true,
	NotificationAttachmentAdded:         true,
	NotificationWelcome:                 true,
	NotificationSystem:                  true,
}

// IsValid reports whether t is one of the closed enumeration values.
func (t NotificationType) IsValid() bool {
	return validNotificationTypes[t]
}

// Notification is a durable per-user notification record.
//
// Invariants: UserID is immutable after creation; Read is true exactly when
// ReadAt is non-nil. Rows are only ever deleted by the cleanup job, and only
// once read and older than the retention threshold.
type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Read      bool             `json:"read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	Subject   *EntityRef       `json:"subject,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewNotification creates an unread notification for the given user.
// Subject and metadata may be nil; a welcome notification, for example,
// carries no subject reference.
func NewNotification(
	userID uuid.UUID,
	message string,
	notificationType NotificationType,
	subject *EntityRef,
	metadata map[string]any,
) (*Notification, error) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Message:   message,
		Type:      notificationType,
		Subject:   subject,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}

	return n, nil
}

// Validate checks the notification's invariants.
func (n *Notification) Validate() error {
	if n.ID == uuid.Nil {
		return ErrInvalidID
	}
	if n.UserID == uuid.Nil {
		return ErrInvalidID
	}
	if n.Message == "" {
		return ErrEmptyMessage
	}
	if !n.Type.IsValid() {
		return ErrInvalidNotificationType
	}
	if n.Read != (n.ReadAt != nil) {
		return ErrInconsistentReadState
	}
	return nil
}

// MarkRead sets the read flag and records the read timestamp. Marking an
// already-read notification again is a no-op and reports false.
func (n *Notification) MarkRead(now time.Time) bool {
	if n.Read {
		return false
	}
	n.Read = true
	t := now.UTC()
	n.ReadAt = &t
	return true
}

// MarkUnread reverts the notification to unread, clearing the read
// timestamp. Reports whether the state changed.
func (n *Notification) MarkUnread() bool {
	if !n.Read {
		return false
	}
	n.Read = false
	n.ReadAt = nil
	return true
}
