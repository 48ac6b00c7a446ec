package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
)

// NotificationFilter narrows a notification listing. Nil fields are
// unfiltered.
type NotificationFilter struct {
	Read   *bool
	Type   *domain.NotificationType
	Limit  int
	Offset int
}

// NotificationStore defines the interface for notification persistence and
// the read/unread lifecycle.
type NotificationStore interface {
	// Create saves a new notification. The notification is always created
	// unread; the recipient is immutable after creation.
	Create(ctx context.Context, notification *domain.Notification) error

	// GetByID retrieves a notification by its ID.
	// Returns ErrNotificationNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error)

	// MarkRead marks the notification read on behalf of the requesting
	// user. Returns ErrForbidden if the requester is not the recipient.
	// Marking an already-read notification again is a no-op.
	MarkRead(ctx context.Context, id, requestingUserID uuid.UUID) error

	// MarkUnread reverts the notification to unread on behalf of the
	// requesting user. Returns ErrForbidden if the requester is not the
	// recipient.
	MarkUnread(ctx context.Context, id, requestingUserID uuid.UUID) error

	// MarkAllRead marks every currently-unread notification for the user as
	// read in one step and returns the number of rows affected.
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)

	// CountUnread returns the number of unread notifications for the user.
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)

	// CountTotal returns the total number of notifications for the user.
	CountTotal(ctx context.Context, userID uuid.UUID) (int64, error)

	// List returns the user's notifications, newest first, applying the
	// given filter.
	List(ctx context.Context, userID uuid.UUID, filter NotificationFilter) ([]*domain.Notification, error)

	// DeleteReadBefore deletes read notifications created before the cutoff
	// and returns the number deleted. Unread notifications are never
	// deleted regardless of age.
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a new NotificationStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) NotificationStore
}
