package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/email"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// EmailPayload is the durable payload of an email task. Data holds flat
// template fields; the renderer's templates read them by name.
type EmailPayload struct {
	UserID   uuid.UUID         `json:"user_id"`
	Template string            `json:"template"`
	Subject  string            `json:"subject"`
	Data     map[string]string `json:"data,omitempty"`
}

// EmailTask renders and sends one email to one recipient.
//
// The recipient's email preference is checked at execution time, not at
// submission time, so a preference flipped while the task sat in the queue
// is honored. An opted-out or inactive recipient completes the task
// without sending.
type EmailTask struct {
	id       uuid.UUID
	payload  []byte
	data     EmailPayload
	users    store.UserStore
	renderer *email.Renderer
	sender   email.Sender
	logger   *slog.Logger
}

// NewEmailTask builds an email task.
func NewEmailTask(
	users store.UserStore,
	renderer *email.Renderer,
	sender email.Sender,
	logger *slog.Logger,
	payload EmailPayload,
) (*EmailTask, error) {
	if payload.UserID == uuid.Nil {
		return nil, domain.ErrInvalidID
	}
	if payload.Template == "" {
		return nil, fmt.Errorf("email task has no template")
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("email task has no subject")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email payload: %w", err)
	}

	return &EmailTask{
		id:       uuid.New(),
		payload:  raw,
		data:     payload,
		users:    users,
		renderer: renderer,
		sender:   sender,
		logger:   logger,
	}, nil
}

// ID implements Task.
func (t *EmailTask) ID() uuid.UUID { return t.id }

// Kind implements Task.
func (t *EmailTask) Kind() string { return KindEmail }

// Payload implements Task.
func (t *EmailTask) Payload() []byte { return t.payload }

// Execute renders the template and sends the message, unless the
// recipient's preference gates it off.
func (t *EmailTask) Execute(ctx context.Context) error {
	user, err := t.users.GetByID(ctx, t.data.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient %s: %w", t.data.UserID, err)
	}

	if !user.Active || !user.EmailNotifications {
		t.logger.Debug("email skipped by preference",
			"user_id", user.ID,
			"template", t.data.Template)
		return nil
	}

	data := make(map[string]string, len(t.data.Data)+1)
	for k, v := range t.data.Data {
		data[k] = v
	}
	if data["RecipientName"] == "" {
		data["RecipientName"] = user.DisplayName()
	}

	textBody, htmlBody, err := t.renderer.Render(t.data.Template, data)
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	msg := email.Message{
		To:       user.Email,
		Subject:  t.data.Subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
	}
	if err := t.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	t.logger.Info("email sent",
		"user_id", user.ID,
		"template", t.data.Template)
	return nil
}
