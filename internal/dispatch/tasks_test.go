package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/email"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

type fakeUserStore struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserStore(users ...*domain.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (s *fakeUserStore) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	var found []*domain.User
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			found = append(found, user)
		}
	}
	return found, nil
}

func (s *fakeUserStore) ListActive(ctx context.Context) ([]*domain.User, error) {
	var active []*domain.User
	for _, user := range s.users {
		if user.Active {
			active = append(active, user)
		}
	}
	return active, nil
}

type fakeNotificationStore struct {
	mu       sync.Mutex
	created  []*domain.Notification
	createFn func(ctx context.Context, n *domain.Notification) error
}

func (s *fakeNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	if s.createFn != nil {
		if err := s.createFn(ctx, n); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, n)
	return nil
}

func (s *fakeNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return nil, store.ErrNotificationNotFound
}

func (s *fakeNotificationStore) MarkRead(ctx context.Context, id, requestingUserID uuid.UUID) error {
	return nil
}

func (s *fakeNotificationStore) MarkUnread(ctx context.Context, id, requestingUserID uuid.UUID) error {
	return nil
}

func (s *fakeNotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *fakeNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *fakeNotificationStore) CountTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *fakeNotificationStore) List(ctx context.Context, userID uuid.UUID, filter store.NotificationFilter) ([]*domain.Notification, error) {
	return nil, nil
}

func (s *fakeNotificationStore) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *fakeNotificationStore) WithTx(tx *sql.Tx) store.NotificationStore { return s }

type fakeSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *fakeSender) Send(ctx context.Context, msg email.Message) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func activeUser(name string) *domain.User {
	return &domain.User{
		ID:                 uuid.New(),
		Username:           name,
		Email:              name + "@example.com",
		Active:             true,
		EmailNotifications: true,
	}
}

func TestNotificationTask_Execute(t *testing.T) {
	t.Parallel()

	t.Run("creates notification for recipient", func(t *testing.T) {
		t.Parallel()

		user := activeUser("alice")
		users := newFakeUserStore(user)
		notifications := &fakeNotificationStore{}

		task, err := NewNotificationTask(users, notifications, newTestLogger(), NotificationPayload{
			UserID:  user.ID,
			Message: "You have been assigned to task 'Ship it'",
			Type:    domain.NotificationTaskAssigned,
		})
		require.NoError(t, err)
		require.Equal(t, KindNotification, task.Kind())

		require.NoError(t, task.Execute(context.Background()))

		require.Len(t, notifications.created, 1)
		created := notifications.created[0]
		assert.Equal(t, user.ID, created.UserID)
		assert.Equal(t, domain.NotificationTaskAssigned, created.Type)
		assert.False(t, created.Read)
		assert.Nil(t, created.ReadAt)
	})

	t.Run("missing recipient completes as a skip", func(t *testing.T) {
		t.Parallel()

		users := newFakeUserStore()
		notifications := &fakeNotificationStore{}

		task, err := NewNotificationTask(users, notifications, newTestLogger(), NotificationPayload{
			UserID:  uuid.New(),
			Message: "hello",
			Type:    domain.NotificationSystem,
		})
		require.NoError(t, err)

		// The recipient can never come back, so retrying is pointless.
		require.NoError(t, task.Execute(context.Background()))
		assert.Empty(t, notifications.created)
	})

	t.Run("missing recipient is never retried by the dispatcher", func(t *testing.T) {
		t.Parallel()

		users := newFakeUserStore()
		notifications := &fakeNotificationStore{}

		task, err := NewNotificationTask(users, notifications, newTestLogger(), NotificationPayload{
			UserID:  uuid.New(),
			Message: "hello",
			Type:    domain.NotificationSystem,
		})
		require.NoError(t, err)

		records := NewMockTaskStore()
		d := NewDispatcher(records, nil, testDispatcherConfig(), newTestLogger())
		require.NoError(t, d.Submit(context.Background(), task))
		require.NoError(t, d.Start())
		defer d.Stop()

		require.Eventually(t, func() bool {
			record, ok := records.Record(task.ID())
			return ok && record.Status == TaskStatusCompleted
		}, 2*time.Second, 10*time.Millisecond)

		record, _ := records.Record(task.ID())
		assert.Equal(t, 0, record.RetryCount)
		assert.Empty(t, notifications.created)
	})

	t.Run("store failure still goes through the retry policy", func(t *testing.T) {
		t.Parallel()

		user := activeUser("erin")
		users := newFakeUserStore(user)
		notifications := &fakeNotificationStore{
			createFn: func(ctx context.Context, n *domain.Notification) error {
				return errors.New("database down")
			},
		}

		task, err := NewNotificationTask(users, notifications, newTestLogger(), NotificationPayload{
			UserID:  user.ID,
			Message: "hello",
			Type:    domain.NotificationSystem,
		})
		require.NoError(t, err)

		err = task.Execute(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database down")
	})

	t.Run("rejects invalid payloads at construction", func(t *testing.T) {
		t.Parallel()

		users := newFakeUserStore()
		notifications := &fakeNotificationStore{}

		_, err := NewNotificationTask(users, notifications, newTestLogger(), NotificationPayload{
			Message: "no recipient",
			Type:    domain.NotificationSystem,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidID)

		_, err = NewNotificationTask(users, notifications, newTestLogger(), NotificationPayload{
			UserID: uuid.New(),
			Type:   domain.NotificationSystem,
		})
		assert.ErrorIs(t, err, domain.ErrEmptyMessage)

		_, err = NewNotificationTask(users, notifications, newTestLogger(), NotificationPayload{
			UserID:  uuid.New(),
			Message: "bad type",
			Type:    "not_a_type",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidNotificationType)
	})
}

func TestBulkNotificationTask_Execute(t *testing.T) {
	t.Parallel()

	t.Run("creates one row per recipient", func(t *testing.T) {
		t.Parallel()

		alice := activeUser("alice")
		bob := activeUser("bob")
		users := newFakeUserStore(alice, bob)
		notifications := &fakeNotificationStore{}

		task, err := NewBulkNotificationTask(users, notifications, newTestLogger(), BulkNotificationPayload{
			UserIDs: []uuid.UUID{alice.ID, bob.ID},
			Message: "Project 'Apollo' was updated",
			Type:    domain.NotificationProjectUpdated,
		})
		require.NoError(t, err)

		require.NoError(t, task.Execute(context.Background()))
		assert.Len(t, notifications.created, 2)
	})

	t.Run("missing recipients are skipped, not retried", func(t *testing.T) {
		t.Parallel()

		alice := activeUser("alice")
		users := newFakeUserStore(alice)
		notifications := &fakeNotificationStore{}

		task, err := NewBulkNotificationTask(users, notifications, newTestLogger(), BulkNotificationPayload{
			UserIDs: []uuid.UUID{alice.ID, uuid.New(), uuid.New()},
			Message: "Project 'Apollo' was updated",
			Type:    domain.NotificationProjectUpdated,
		})
		require.NoError(t, err)

		// No error even though two recipients are gone.
		require.NoError(t, task.Execute(context.Background()))
		assert.Len(t, notifications.created, 1)
		assert.Equal(t, alice.ID, notifications.created[0].UserID)
	})

	t.Run("fails only when nothing could be created", func(t *testing.T) {
		t.Parallel()

		alice := activeUser("alice")
		users := newFakeUserStore(alice)
		notifications := &fakeNotificationStore{
			createFn: func(ctx context.Context, n *domain.Notification) error {
				return errors.New("database down")
			},
		}

		task, err := NewBulkNotificationTask(users, notifications, newTestLogger(), BulkNotificationPayload{
			UserIDs: []uuid.UUID{alice.ID},
			Message: "Project 'Apollo' was updated",
			Type:    domain.NotificationProjectUpdated,
		})
		require.NoError(t, err)

		err = task.Execute(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database down")
	})

	t.Run("rejects empty recipient list", func(t *testing.T) {
		t.Parallel()

		_, err := NewBulkNotificationTask(newFakeUserStore(), &fakeNotificationStore{}, newTestLogger(), BulkNotificationPayload{
			Message: "nobody home",
			Type:    domain.NotificationSystem,
		})
		assert.Error(t, err)
	})
}

func TestEmailTask_Execute(t *testing.T) {
	t.Parallel()

	renderer, err := email.NewRenderer()
	require.NoError(t, err)

	t.Run("renders and sends to opted-in recipient", func(t *testing.T) {
		t.Parallel()

		user := activeUser("alice")
		user.FullName = "Alice Smith"
		users := newFakeUserStore(user)
		sender := &fakeSender{}

		task, err := NewEmailTask(users, renderer, sender, newTestLogger(), EmailPayload{
			UserID:   user.ID,
			Template: email.TemplateTaskAssignment,
			Subject:  "New task assigned to you",
			Data: map[string]string{
				"TaskTitle":   "Ship it",
				"ProjectName": "Apollo",
				"SiteName":    "TaskFlow",
			},
		})
		require.NoError(t, err)

		require.NoError(t, task.Execute(context.Background()))

		require.Len(t, sender.sent, 1)
		msg := sender.sent[0]
		assert.Equal(t, "alice@example.com", msg.To)
		assert.Equal(t, "New task assigned to you", msg.Subject)
		assert.Contains(t, msg.TextBody, "Alice Smith")
		assert.Contains(t, msg.TextBody, "Ship it")
		assert.Contains(t, msg.HTMLBody, "Apollo")
	})

	t.Run("opted-out recipient completes without sending", func(t *testing.T) {
		t.Parallel()

		user := activeUser("bob")
		user.EmailNotifications = false
		users := newFakeUserStore(user)
		sender := &fakeSender{}

		task, err := NewEmailTask(users, renderer, sender, newTestLogger(), EmailPayload{
			UserID:   user.ID,
			Template: email.TemplateWelcome,
			Subject:  "Welcome",
		})
		require.NoError(t, err)

		require.NoError(t, task.Execute(context.Background()))
		assert.Empty(t, sender.sent)
	})

	t.Run("inactive recipient completes without sending", func(t *testing.T) {
		t.Parallel()

		user := activeUser("carol")
		user.Active = false
		users := newFakeUserStore(user)
		sender := &fakeSender{}

		task, err := NewEmailTask(users, renderer, sender, newTestLogger(), EmailPayload{
			UserID:   user.ID,
			Template: email.TemplateWelcome,
			Subject:  "Welcome",
		})
		require.NoError(t, err)

		require.NoError(t, task.Execute(context.Background()))
		assert.Empty(t, sender.sent)
	})

	t.Run("send failure propagates for retry", func(t *testing.T) {
		t.Parallel()

		user := activeUser("dave")
		users := newFakeUserStore(user)
		sender := &fakeSender{err: errors.New("smtp connection refused")}

		task, err := NewEmailTask(users, renderer, sender, newTestLogger(), EmailPayload{
			UserID:   user.ID,
			Template: email.TemplateWelcome,
			Subject:  "Welcome",
		})
		require.NoError(t, err)

		err = task.Execute(context.Background())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "smtp connection refused")
	})
}

func TestFactory_Rehydrate(t *testing.T) {
	t.Parallel()

	renderer, err := email.NewRenderer()
	require.NoError(t, err)

	user := activeUser("alice")
	users := newFakeUserStore(user)
	notifications := &fakeNotificationStore{}
	factory := NewFactory(users, notifications, renderer, &fakeSender{}, newTestLogger())

	t.Run("rebuilds each kind with the original identity", func(t *testing.T) {
		t.Parallel()

		original, err := NewNotificationTask(users, notifications, newTestLogger(), NotificationPayload{
			UserID:  user.ID,
			Message: "hello",
			Type:    domain.NotificationSystem,
		})
		require.NoError(t, err)

		record := TaskRecord{
			ID:      original.ID(),
			Kind:    original.Kind(),
			Payload: original.Payload(),
			Status:  TaskStatusPending,
		}

		rebuilt, err := factory.Rehydrate(record)
		require.NoError(t, err)
		assert.Equal(t, original.ID(), rebuilt.ID())
		assert.Equal(t, KindNotification, rebuilt.Kind())

		require.NoError(t, rebuilt.Execute(context.Background()))
		require.Len(t, notifications.created, 1)
	})

	t.Run("unknown kind is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := factory.Rehydrate(TaskRecord{ID: uuid.New(), Kind: "mystery"})
		assert.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "unknown task kind"))
	})

	t.Run("corrupt payload is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := factory.Rehydrate(TaskRecord{
			ID:      uuid.New(),
			Kind:    KindEmail,
			Payload: []byte("{not json"),
		})
		assert.Error(t, err)
	})
}
