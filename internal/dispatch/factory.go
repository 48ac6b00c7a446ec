package dispatch

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/email"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// Factory rehydrates executable tasks from durable records, rebinding the
// stores and the mail stack that their side effects need. It implements
// TaskFactory for the dispatcher's crash recovery.
type Factory struct {
	users         store.UserStore
	notifications store.NotificationStore
	renderer      *email.Renderer
	sender        email.Sender
	logger        *slog.Logger
}

// NewFactory creates a task factory over the given dependencies.
func NewFactory(
	users store.UserStore,
	notifications store.NotificationStore,
	renderer *email.Renderer,
	sender email.Sender,
	logger *slog.Logger,
) *Factory {
	return &Factory{
		users:         users,
		notifications: notifications,
		renderer:      renderer,
		sender:        sender,
		logger:        logger,
	}
}

// Rehydrate implements TaskFactory. The rebuilt task keeps the record's
// identity so status updates land on the original row.
func (f *Factory) Rehydrate(record TaskRecord) (Task, error) {
	switch record.Kind {
	case KindNotification:
		var payload NotificationPayload
		if err := json.Unmarshal(record.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification payload: %w", err)
		}
		task, err := NewNotificationTask(f.users, f.notifications, f.logger, payload)
		if err != nil {
			return nil, err
		}
		task.id = record.ID
		return task, nil

	case KindNotificationBulk:
		var payload BulkNotificationPayload
		if err := json.Unmarshal(record.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bulk notification payload: %w", err)
		}
		task, err := NewBulkNotificationTask(f.users, f.notifications, f.logger, payload)
		if err != nil {
			return nil, err
		}
		task.id = record.ID
		return task, nil

	case KindEmail:
		var payload EmailPayload
		if err := json.Unmarshal(record.Payload, &payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal email payload: %w", err)
		}
		task, err := NewEmailTask(f.users, f.renderer, f.sender, f.logger, payload)
		if err != nil {
			return nil, err
		}
		task.id = record.ID
		return task, nil

	default:
		return nil, fmt.Errorf("unknown task kind %q", record.Kind)
	}
}
