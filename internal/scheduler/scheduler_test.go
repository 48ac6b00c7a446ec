package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/dispatch"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/email"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// The fixed "now" all scheduler tests run against: a Wednesday, noon UTC.
var testNow = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

type fakeUsers struct {
	active []*domain.User
}

func (s *fakeUsers) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, u := range s.active {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *fakeUsers) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	var out []*domain.User
	for _, id := range ids {
		if u, err := s.GetByID(ctx, id); err == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (s *fakeUsers) ListActive(ctx context.Context) ([]*domain.User, error) {
	return s.active, nil
}

type fakeTasks struct {
	openByAssignee  map[uuid.UUID][]*domain.Task
	completedByUser map[uuid.UUID][]*domain.Task
	createdByUser   map[uuid.UUID][]*domain.Task
	incomplete      map[uuid.UUID]int64

	completedWindows [][2]time.Time
}

func (s *fakeTasks) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return nil, store.ErrTaskNotFound
}

func (s *fakeTasks) ListOpenByAssignee(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	return s.openByAssignee[userID], nil
}

func (s *fakeTasks) ListCompletedByUser(ctx context.Context, userID uuid.UUID, since, until time.Time) ([]*domain.Task, error) {
	s.completedWindows = append(s.completedWindows, [2]time.Time{since, until})
	return s.completedByUser[userID], nil
}

func (s *fakeTasks) ListCreatedByUser(ctx context.Context, userID uuid.UUID, since, until time.Time) ([]*domain.Task, error) {
	return s.createdByUser[userID], nil
}

func (s *fakeTasks) CountIncompleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	return s.incomplete[projectID], nil
}

type fakeProjects struct {
	activeByMember  map[uuid.UUID][]*domain.Project
	completedBefore []*domain.Project
	members         map[uuid.UUID][]uuid.UUID
	archived        map[uuid.UUID]bool

	markCalls []uuid.UUID
}

func (s *fakeProjects) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	return nil, store.ErrProjectNotFound
}

func (s *fakeProjects) ListMemberIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	return s.members[projectID], nil
}

func (s *fakeProjects) ListActiveByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	return s.activeByMember[userID], nil
}

func (s *fakeProjects) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Project, error) {
	return s.completedBefore, nil
}

func (s *fakeProjects) MarkArchived(ctx context.Context, projectID uuid.UUID, archivedAt time.Time) (bool, error) {
	s.markCalls = append(s.markCalls, projectID)
	if s.archived[projectID] {
		return false, nil
	}
	if s.archived == nil {
		s.archived = make(map[uuid.UUID]bool)
	}
	s.archived[projectID] = true
	return true, nil
}

type fakeNotifications struct {
	deleteCutoff time.Time
	deleted      int64
}

func (s *fakeNotifications) Create(ctx context.Context, n *domain.Notification) error { return nil }

func (s *fakeNotifications) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	return nil, store.ErrNotificationNotFound
}

func (s *fakeNotifications) MarkRead(ctx context.Context, id, requestingUserID uuid.UUID) error {
	return nil
}

func (s *fakeNotifications) MarkUnread(ctx context.Context, id, requestingUserID uuid.UUID) error {
	return nil
}

func (s *fakeNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *fakeNotifications) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *fakeNotifications) CountTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *fakeNotifications) List(ctx context.Context, userID uuid.UUID, filter store.NotificationFilter) ([]*domain.Notification, error) {
	return nil, nil
}

func (s *fakeNotifications) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.deleteCutoff = cutoff
	return s.deleted, nil
}

func (s *fakeNotifications) WithTx(tx *sql.Tx) store.NotificationStore { return s }

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (s *fakeMailer) Send(ctx context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

type captureSubmitter struct {
	tasks []dispatch.Task
}

func (s *captureSubmitter) Submit(ctx context.Context, task dispatch.Task) error {
	s.tasks = append(s.tasks, task)
	return nil
}

type schedulerFixture struct {
	scheduler     *Scheduler
	users         *fakeUsers
	tasks         *fakeTasks
	projects      *fakeProjects
	notifications *fakeNotifications
	mailer        *fakeMailer
	submitter     *captureSubmitter
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()

	renderer, err := email.NewRenderer()
	require.NoError(t, err)

	f := &schedulerFixture{
		users: &fakeUsers{},
		tasks: &fakeTasks{
			openByAssignee:  make(map[uuid.UUID][]*domain.Task),
			completedByUser: make(map[uuid.UUID][]*domain.Task),
			createdByUser:   make(map[uuid.UUID][]*domain.Task),
			incomplete:      make(map[uuid.UUID]int64),
		},
		projects: &fakeProjects{
			activeByMember: make(map[uuid.UUID][]*domain.Project),
			members:        make(map[uuid.UUID][]uuid.UUID),
			archived:       make(map[uuid.UUID]bool),
		},
		notifications: &fakeNotifications{},
		mailer:        &fakeMailer{},
		submitter:     &captureSubmitter{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.scheduler = New(
		f.users,
		f.tasks,
		f.projects,
		f.notifications,
		f.submitter,
		renderer,
		f.mailer,
		Config{SiteName: "TaskFlow"},
		logger,
	)
	f.scheduler.now = func() time.Time { return testNow }
	return f
}

func testUser(name string, optedIn bool) *domain.User {
	return &domain.User{
		ID:                 uuid.New(),
		Username:           name,
		Email:              name + "@example.com",
		Active:             true,
		EmailNotifications: optedIn,
	}
}

func dueTask(title string, due time.Time) *domain.Task {
	return &domain.Task{
		ID:      uuid.New(),
		Title:   title,
		Status:  domain.TaskStatusTodo,
		DueDate: &due,
	}
}

func TestRunDailyReminders(t *testing.T) {
	t.Parallel()

	t.Run("buckets tasks into overdue, due today and upcoming", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		user := testUser("alice", true)
		f.users.active = []*domain.User{user}

		f.tasks.openByAssignee[user.ID] = []*domain.Task{
			dueTask("overdue report", testNow.Add(-48*time.Hour)),
			dueTask("due today standup notes", testNow.Add(2*time.Hour)),
			dueTask("upcoming review", testNow.Add(36*time.Hour)),
			dueTask("far future plan", testNow.Add(30*24*time.Hour)),
			{ID: uuid.New(), Title: "no due date", Status: domain.TaskStatusTodo},
		}

		summary := f.scheduler.RunDailyReminders(context.Background())

		assert.Equal(t, 1, summary.UsersExamined)
		assert.Equal(t, 1, summary.EmailsSent)
		assert.Equal(t, 0, summary.Failures)

		require.Len(t, f.mailer.sent, 1)
		body := f.mailer.sent[0].TextBody
		assert.Contains(t, body, "overdue report")
		assert.Contains(t, body, "due today standup notes")
		assert.Contains(t, body, "upcoming review")
		assert.NotContains(t, body, "far future plan")
		assert.NotContains(t, body, "no due date")
	})

	t.Run("user with nothing due gets no mail", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		user := testUser("bob", true)
		f.users.active = []*domain.User{user}
		f.tasks.openByAssignee[user.ID] = []*domain.Task{
			dueTask("far future plan", testNow.Add(30*24*time.Hour)),
		}

		summary := f.scheduler.RunDailyReminders(context.Background())

		assert.Equal(t, 1, summary.Skipped)
		assert.Empty(t, f.mailer.sent)
	})

	t.Run("opted-out user is skipped", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		user := testUser("carol", false)
		f.users.active = []*domain.User{user}
		f.tasks.openByAssignee[user.ID] = []*domain.Task{
			dueTask("due today", testNow),
		}

		summary := f.scheduler.RunDailyReminders(context.Background())

		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 0, summary.EmailsSent)
		assert.Empty(t, f.mailer.sent)
	})

	t.Run("each recipient gets exactly one email per run", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		alice := testUser("alice", true)
		bob := testUser("bob", true)
		f.users.active = []*domain.User{alice, bob}
		f.tasks.openByAssignee[alice.ID] = []*domain.Task{
			dueTask("a1", testNow.Add(-time.Hour)),
			dueTask("a2", testNow.Add(time.Hour)),
			dueTask("a3", testNow.Add(40*time.Hour)),
		}
		f.tasks.openByAssignee[bob.ID] = []*domain.Task{
			dueTask("b1", testNow.Add(time.Hour)),
		}

		summary := f.scheduler.RunDailyReminders(context.Background())

		assert.Equal(t, 2, summary.EmailsSent)
		require.Len(t, f.mailer.sent, 2)
		assert.NotEqual(t, f.mailer.sent[0].To, f.mailer.sent[1].To)
	})
}

func TestRunWeeklyDigest(t *testing.T) {
	t.Parallel()

	t.Run("summarizes the trailing week", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		user := testUser("alice", true)
		f.users.active = []*domain.User{user}

		f.tasks.completedByUser[user.ID] = []*domain.Task{
			{ID: uuid.New(), Title: "finished thing", Status: domain.TaskStatusDone},
		}
		f.tasks.createdByUser[user.ID] = []*domain.Task{
			{ID: uuid.New(), Title: "new thing", Status: domain.TaskStatusTodo},
		}
		f.projects.activeByMember[user.ID] = []*domain.Project{
			{ID: uuid.New(), Name: "Apollo", Status: domain.ProjectStatusActive},
		}

		summary := f.scheduler.RunWeeklyDigest(context.Background())

		assert.Equal(t, 1, summary.EmailsSent)
		require.Len(t, f.mailer.sent, 1)
		body := f.mailer.sent[0].TextBody
		assert.Contains(t, body, "finished thing")
		assert.Contains(t, body, "new thing")
		assert.Contains(t, body, "Apollo")
		assert.Contains(t, body, "Tasks completed: 1")

		// The window is exactly the trailing seven days.
		require.NotEmpty(t, f.tasks.completedWindows)
		window := f.tasks.completedWindows[0]
		assert.Equal(t, testNow.Add(-7*24*time.Hour), window[0])
		assert.Equal(t, testNow, window[1])
	})

	t.Run("caps lists but reports true counts", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		user := testUser("alice", true)
		f.users.active = []*domain.User{user}

		var completed []*domain.Task
		for i := 0; i < 12; i++ {
			completed = append(completed, &domain.Task{
				ID:     uuid.New(),
				Title:  fmt.Sprintf("completed %02d", i),
				Status: domain.TaskStatusDone,
			})
		}
		f.tasks.completedByUser[user.ID] = completed

		summary := f.scheduler.RunWeeklyDigest(context.Background())
		assert.Equal(t, 1, summary.EmailsSent)

		require.Len(t, f.mailer.sent, 1)
		body := f.mailer.sent[0].TextBody
		assert.Contains(t, body, "Tasks completed: 12")
		assert.Contains(t, body, "completed 09")
		assert.NotContains(t, body, "completed 10")
	})

	t.Run("assigned work alone still gets a digest", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		user := testUser("dana", true)
		f.users.active = []*domain.User{user}

		f.tasks.openByAssignee[user.ID] = []*domain.Task{
			dueTask("quarterly report", testNow.Add(3*24*time.Hour)),
			dueTask("someday refactor", testNow.Add(20*24*time.Hour)),
		}
		f.projects.activeByMember[user.ID] = []*domain.Project{
			{ID: uuid.New(), Name: "Hermes", Status: domain.ProjectStatusActive},
		}

		summary := f.scheduler.RunWeeklyDigest(context.Background())

		assert.Equal(t, 1, summary.EmailsSent)
		assert.Equal(t, 0, summary.Skipped)
		require.Len(t, f.mailer.sent, 1)
		body := f.mailer.sent[0].TextBody
		assert.Contains(t, body, "Tasks assigned:  2")
		assert.Contains(t, body, "ON YOUR PLATE:")
		assert.Contains(t, body, "someday refactor")
		assert.Contains(t, body, "Hermes")

		// Only the imminent task counts as a deadline.
		idx := strings.Index(body, "DUE THIS WEEK:")
		require.GreaterOrEqual(t, idx, 0)
		deadlines := body[idx:]
		assert.Contains(t, deadlines, "quarterly report")
		assert.NotContains(t, deadlines, "someday refactor")
	})

	t.Run("no activity means no digest", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		user := testUser("idle", true)
		f.users.active = []*domain.User{user}

		summary := f.scheduler.RunWeeklyDigest(context.Background())

		assert.Equal(t, 1, summary.Skipped)
		assert.Empty(t, f.mailer.sent)
	})
}

func TestJobCadences(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t)

	intervals := make(map[string]time.Duration)
	for _, job := range f.scheduler.jobs() {
		intervals[job.name] = job.interval
	}

	assert.Equal(t, 24*time.Hour, intervals["daily_reminders"])
	assert.Equal(t, 7*24*time.Hour, intervals["weekly_digest"])
	assert.Equal(t, 7*24*time.Hour, intervals["cleanup"])
	assert.Equal(t, 30*24*time.Hour, intervals["archival"])
}

func TestRunCleanup(t *testing.T) {
	t.Parallel()

	f := newSchedulerFixture(t)
	f.notifications.deleted = 7

	summary, err := f.scheduler.RunCleanup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(7), summary.Deleted)
	assert.Equal(t, testNow.Add(-30*24*time.Hour), f.notifications.deleteCutoff)
}

func TestRunArchival(t *testing.T) {
	t.Parallel()

	t.Run("archives stale completed project and notifies members", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		project := &domain.Project{
			ID:     uuid.New(),
			Name:   "Old Apollo",
			Status: domain.ProjectStatusCompleted,
		}
		members := []uuid.UUID{uuid.New(), uuid.New()}
		f.projects.completedBefore = []*domain.Project{project}
		f.projects.members[project.ID] = members

		summary := f.scheduler.RunArchival(context.Background())

		assert.Equal(t, 1, summary.Archived)
		assert.Equal(t, 0, summary.Failures)
		assert.True(t, f.projects.archived[project.ID])

		require.Len(t, f.submitter.tasks, 1)
		var payload dispatch.BulkNotificationPayload
		require.NoError(t, json.Unmarshal(f.submitter.tasks[0].Payload(), &payload))
		assert.ElementsMatch(t, members, payload.UserIDs)
		assert.Contains(t, payload.Message, "Old Apollo")
		assert.Contains(t, payload.Message, "archived")
	})

	t.Run("skips project with open tasks", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		project := &domain.Project{ID: uuid.New(), Name: "Half done", Status: domain.ProjectStatusCompleted}
		f.projects.completedBefore = []*domain.Project{project}
		f.tasks.incomplete[project.ID] = 2

		summary := f.scheduler.RunArchival(context.Background())

		assert.Equal(t, 1, summary.SkippedIncomplete)
		assert.Equal(t, 0, summary.Archived)
		assert.False(t, f.projects.archived[project.ID])
		assert.Empty(t, f.submitter.tasks)
	})

	t.Run("rerun neither re-archives nor re-notifies", func(t *testing.T) {
		t.Parallel()

		f := newSchedulerFixture(t)
		project := &domain.Project{ID: uuid.New(), Name: "Old Apollo", Status: domain.ProjectStatusCompleted}
		f.projects.completedBefore = []*domain.Project{project}
		f.projects.members[project.ID] = []uuid.UUID{uuid.New()}

		first := f.scheduler.RunArchival(context.Background())
		second := f.scheduler.RunArchival(context.Background())

		assert.Equal(t, 1, first.Archived)
		assert.Equal(t, 0, second.Archived)
		assert.Equal(t, 1, second.SkippedAlreadyArchived)
		assert.Len(t, f.submitter.tasks, 1)
	})
}
