package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// NotificationPayload is the durable payload of a single-recipient
// notification task.
type NotificationPayload struct {
	UserID   uuid.UUID               `json:"user_id"`
	Message  string                  `json:"message"`
	Type     domain.NotificationType `json:"type"`
	Subject  *domain.EntityRef       `json:"subject,omitempty"`
	Metadata map[string]any          `json:"metadata,omitempty"`
}

// NotificationTask creates one notification row for one recipient. A
// recipient deleted between fan-out and execution is a missing referent:
// the task completes as a logged skip rather than burning retries on a row
// that can never be created.
type NotificationTask struct {
	id            uuid.UUID
	payload       []byte
	data          NotificationPayload
	users         store.UserStore
	notifications store.NotificationStore
	logger        *slog.Logger
}

// NewNotificationTask builds a notification task, validating and
// serializing the payload up front so malformed submissions fail at the
// call site rather than in a worker.
func NewNotificationTask(
	users store.UserStore,
	notifications store.NotificationStore,
	logger *slog.Logger,
	payload NotificationPayload,
) (*NotificationTask, error) {
	if payload.UserID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	if payload.Message == "" {
		return nil, domain.ErrEmptyMessage
	}
	if !payload.Type.IsValid() {
		return nil, domain.ErrInvalidNotificationType
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	return &NotificationTask{
		id:            uuid.New(),
		payload:       raw,
		data:          payload,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}, nil
}

// ID implements Task.
func (t *NotificationTask) ID() uuid.UUID { return t.id }

// Kind implements Task.
func (t *NotificationTask) Kind() string { return KindNotification }

// Payload implements Task.
func (t *NotificationTask) Payload() []byte { return t.payload }

// Execute creates the notification row.
func (t *NotificationTask) Execute(ctx context.Context) error {
	user, err := t.users.GetByID(ctx, t.data.UserID)
	if err != nil {
		if store.IsNotFoundError(err) {
			t.logger.Warn("notification recipient no longer exists, skipping",
				"task_id", t.id,
				"user_id", t.data.UserID,
				"notification_type", t.data.Type)
			return nil
		}
		return fmt.Errorf("failed to resolve recipient %s: %w", t.data.UserID, err)
	}

	notification, err := domain.NewNotification(user.ID, t.data.Message, t.data.Type, t.data.Subject, t.data.Metadata)
	if err != nil {
		return fmt.Errorf("failed to build notification: %w", err)
	}

	if err := t.notifications.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	t.logger.Debug("notification created",
		"notification_id", notification.ID,
		"user_id", user.ID,
		"notification_type", notification.Type)
	return nil
}
