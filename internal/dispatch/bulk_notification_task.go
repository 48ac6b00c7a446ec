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

// BulkNotificationPayload is the durable payload of a bulk notification
// task: the same message delivered to every listed recipient.
type BulkNotificationPayload struct {
	UserIDs  []uuid.UUID             `json:"user_ids"`
	Message  string                  `json:"message"`
	Type     domain.NotificationType `json:"type"`
	Subject  *domain.EntityRef       `json:"subject,omitempty"`
	Metadata map[string]any          `json:"metadata,omitempty"`
}

// BulkNotificationTask creates one notification row per recipient.
//
// Recipients that no longer exist are skipped and counted, not retried;
// the remaining recipients are still served. The task only fails, and so
// only retries, when no row could be created at all.
type BulkNotificationTask struct {
	id            uuid.UUID
	payload       []byte
	data          BulkNotificationPayload
	users         store.UserStore
	notifications store.NotificationStore
	logger        *slog.Logger
}

// NewBulkNotificationTask builds a bulk notification task.
func NewBulkNotificationTask(
	users store.UserStore,
	notifications store.NotificationStore,
	logger *slog.Logger,
	payload BulkNotificationPayload,
) (*BulkNotificationTask, error) {
	if len(payload.UserIDs) == 0 {
		return nil, fmt.Errorf("bulk notification has no recipients")
	}
	if payload.Message == "" {
		return nil, domain.ErrEmptyMessage
	}
	if !payload.Type.IsValid() {
		return nil, domain.ErrInvalidNotificationType
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bulk notification payload: %w", err)
	}

	return &BulkNotificationTask{
		id:            uuid.New(),
		payload:       raw,
		data:          payload,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}, nil
}

// ID implements Task.
func (t *BulkNotificationTask) ID() uuid.UUID { return t.id }

// Kind implements Task.
func (t *BulkNotificationTask) Kind() string { return KindNotificationBulk }

// Payload implements Task.
func (t *BulkNotificationTask) Payload() []byte { return t.payload }

// Execute creates a notification row for each resolvable recipient and
// logs a created/failed summary.
func (t *BulkNotificationTask) Execute(ctx context.Context) error {
	found, err := t.users.GetByIDs(ctx, t.data.UserIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve recipients: %w", err)
	}

	created := 0
	failed := len(t.data.UserIDs) - len(found)

	var lastErr error
	for _, user := range found {
		notification, err := domain.NewNotification(user.ID, t.data.Message, t.data.Type, t.data.Subject, t.data.Metadata)
		if err != nil {
			failed++
			lastErr = err
			continue
		}

		if err := t.notifications.Create(ctx, notification); err != nil {
			failed++
			lastErr = err
			t.logger.Warn("failed to create notification for recipient",
				"user_id", user.ID,
				"error", err)
			continue
		}
		created++
	}

	t.logger.Info("bulk notification processed",
		"notification_type", t.data.Type,
		"recipients", len(t.data.UserIDs),
		"created", created,
		"failed", failed)

	if created == 0 && lastErr != nil {
		return fmt.Errorf("failed to create any of %d notifications: %w", len(t.data.UserIDs), lastErr)
	}
	return nil
}
