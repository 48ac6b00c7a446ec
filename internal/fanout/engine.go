// Package fanout resolves which users a classified event concerns and
// submits the corresponding dispatch tasks. It never writes notifications
// itself; the dispatcher's execution boundary owns persistence and retries.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/dispatch"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/email"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/event"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// Submitter is the slice of the dispatcher the engine needs.
type Submitter interface {
	Submit(ctx context.Context, task dispatch.Task) error
}

// Config holds the display settings interpolated into messages and emails.
type Config struct {
	SiteName    string
	FrontendURL string
}

// Engine resolves recipients for classified events. Direct addressees
// (assignee, affected member) get single-recipient dispatches; member-wide
// audiences get one bulk dispatch carrying the full recipient list. The
// acting user is always excluded.
type Engine struct {
	dispatcher    Submitter
	users         store.UserStore
	tasks         store.TaskStore
	projects      store.ProjectStore
	teams         store.TeamStore
	notifications store.NotificationStore
	renderer      *email.Renderer
	sender        email.Sender
	config        Config
	logger        *slog.Logger
}

// NewEngine creates a fan-out engine.
func NewEngine(
	dispatcher Submitter,
	users store.UserStore,
	tasks store.TaskStore,
	projects store.ProjectStore,
	teams store.TeamStore,
	notifications store.NotificationStore,
	renderer *email.Renderer,
	sender email.Sender,
	config Config,
	logger *slog.Logger,
) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		dispatcher:    dispatcher,
		users:         users,
		tasks:         tasks,
		projects:      projects,
		teams:         teams,
		notifications: notifications,
		renderer:      renderer,
		sender:        sender,
		config:        config,
		logger:        logger.With(slog.String("component", "fanout")),
	}
}

// FanOut resolves recipients for the event and submits dispatch tasks.
// A subject that disappeared between classification and fan-out is logged
// and skipped, not surfaced: the mutation already happened and there is
// nobody left to notify about it.
func (e *Engine) FanOut(ctx context.Context, ev event.Event) error {
	switch ev.Type {
	case event.TypeCreated:
		if ev.Subject.Kind == domain.EntityTask {
			return e.fanOutAssignment(ctx, ev, false)
		}
		return nil

	case event.TypeAssigned:
		return e.fanOutAssignment(ctx, ev, true)

	case event.TypeStatusChanged:
		switch ev.Subject.Kind {
		case domain.EntityTask:
			return e.fanOutTaskStatus(ctx, ev)
		case domain.EntityProject:
			return e.fanOutProjectStatus(ctx, ev)
		}
		return nil

	case event.TypePriorityChanged:
		return e.fanOutTaskPriority(ctx, ev)

	case event.TypeUpdated:
		switch ev.Subject.Kind {
		case domain.EntityTask:
			return e.fanOutTaskUpdate(ctx, ev)
		case domain.EntityProject:
			return e.fanOutProjectUpdate(ctx, ev)
		}
		return nil

	case event.TypeMemberAdded, event.TypeMemberRemoved:
		return e.fanOutMembership(ctx, ev)

	case event.TypeCommentAdded, event.TypeAttachmentAdded:
		return e.fanOutTaskActivity(ctx, ev)

	default:
		// unassigned, deleted: audit-only, nobody to notify
		return nil
	}
}

// fanOutAssignment notifies the task's assignee, directly plus by email.
func (e *Engine) fanOutAssignment(ctx context.Context, ev event.Event, isReassignment bool) error {
	task, ok := e.loadTask(ctx, ev)
	if !ok {
		return nil
	}
	if task.AssigneeID == nil || sameUser(task.AssigneeID, ev.ActorID) {
		return nil
	}

	title := contextString(ev.Context, "title", task.Title)
	message := fmt.Sprintf("You have been assigned to task '%s'", title)

	var errs []error
	if err := e.submitSingle(ctx, *task.AssigneeID, message, domain.NotificationTaskAssigned, &ev.Subject, ev.Context); err != nil {
		errs = append(errs, err)
	}

	data := map[string]string{
		"TaskTitle":   title,
		"ProjectName": contextString(ev.Context, "project_name", ""),
		"ActorName":   contextString(ev.Context, "actor_name", ""),
		"SiteName":    e.config.SiteName,
	}
	if task.DueDate != nil {
		data["DueDate"] = task.DueDate.Format("2006-01-02")
	}
	if err := e.submitEmail(ctx, *task.AssigneeID, email.TemplateTaskAssignment, "You have a new task assignment", data); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// fanOutTaskStatus notifies the assignee of any status change and, when the
// task reached its terminal state, the rest of the project via bulk.
func (e *Engine) fanOutTaskStatus(ctx context.Context, ev event.Event) error {
	task, ok := e.loadTask(ctx, ev)
	if !ok {
		return nil
	}

	title := contextString(ev.Context, "title", task.Title)
	newStatus := diffNew(ev, "status")

	var errs []error
	if task.AssigneeID != nil && !sameUser(task.AssigneeID, ev.ActorID) {
		message := fmt.Sprintf("Task '%s' status changed to %s", title, newStatus)
		if err := e.submitSingle(ctx, *task.AssigneeID, message, domain.NotificationTaskStatusChanged, &ev.Subject, ev.Context); err != nil {
			errs = append(errs, err)
		}
	}

	if newStatus == string(domain.TaskStatusDone) && task.ProjectID != nil {
		members := e.projectMembers(ctx, *task.ProjectID)
		recipients := excludeUsers(members, ev.ActorID, task.AssigneeID)
		if len(recipients) > 0 {
			message := fmt.Sprintf("Task '%s' was completed", title)
			if err := e.submitBulk(ctx, recipients, message, domain.NotificationTaskCompleted, &ev.Subject, ev.Context); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (e *Engine) fanOutTaskPriority(ctx context.Context, ev event.Event) error {
	task, ok := e.loadTask(ctx, ev)
	if !ok {
		return nil
	}
	if task.AssigneeID == nil || sameUser(task.AssigneeID, ev.ActorID) {
		return nil
	}

	title := contextString(ev.Context, "title", task.Title)
	message := fmt.Sprintf("Task '%s' priority changed to %s", title, diffNew(ev, "priority"))
	return e.submitSingle(ctx, *task.AssigneeID, message, domain.NotificationTaskPriorityChanged, &ev.Subject, ev.Context)
}

func (e *Engine) fanOutTaskUpdate(ctx context.Context, ev event.Event) error {
	task, ok := e.loadTask(ctx, ev)
	if !ok {
		return nil
	}
	if task.AssigneeID == nil || sameUser(task.AssigneeID, ev.ActorID) {
		return nil
	}

	title := contextString(ev.Context, "title", task.Title)
	message := fmt.Sprintf("Task '%s' was updated", title)
	return e.submitSingle(ctx, *task.AssigneeID, message, domain.NotificationTaskUpdated, &ev.Subject, ev.Context)
}

func (e *Engine) fanOutProjectStatus(ctx context.Context, ev event.Event) error {
	name := contextString(ev.Context, "project_name", "your project")
	message := fmt.Sprintf("Project '%s' status changed to %s", name, diffNew(ev, "status"))
	recipients := excludeUsers(e.projectMembers(ctx, ev.Subject.ID), ev.ActorID)
	if len(recipients) == 0 {
		return nil
	}
	return e.submitBulk(ctx, recipients, message, domain.NotificationProjectStatusChanged, &ev.Subject, ev.Context)
}

func (e *Engine) fanOutProjectUpdate(ctx context.Context, ev event.Event) error {
	name := contextString(ev.Context, "project_name", "your project")
	message := fmt.Sprintf("Project '%s' was updated", name)
	recipients := excludeUsers(e.projectMembers(ctx, ev.Subject.ID), ev.ActorID)
	if len(recipients) == 0 {
		return nil
	}
	return e.submitBulk(ctx, recipients, message, domain.NotificationProjectUpdated, &ev.Subject, ev.Context)
}

// fanOutMembership notifies the affected user directly and the rest of the
// project or team via bulk.
func (e *Engine) fanOutMembership(ctx context.Context, ev event.Event) error {
	if ev.Member == nil {
		return nil
	}

	added := ev.Type == event.TypeMemberAdded

	var (
		scopeName  string
		scopeNoun  string
		directType domain.NotificationType
		bulkType   domain.NotificationType
		members    []uuid.UUID
	)
	switch ev.Subject.Kind {
	case domain.EntityProject:
		scopeName = contextString(ev.Context, "project_name", "a project")
		scopeNoun = "project"
		if added {
			directType, bulkType = domain.NotificationProjectMemberAdded, domain.NotificationProjectMemberAdded
		} else {
			directType, bulkType = domain.NotificationProjectMemberRemoved, domain.NotificationProjectMemberRemoved
		}
		members = e.projectMembers(ctx, ev.Subject.ID)
	case domain.EntityTeam:
		scopeName = contextString(ev.Context, "team_name", "a team")
		scopeNoun = "team"
		if added {
			directType, bulkType = domain.NotificationTeamMemberAdded, domain.NotificationTeamMemberAdded
		} else {
			directType, bulkType = domain.NotificationTeamMemberRemoved, domain.NotificationTeamMemberRemoved
		}
		members = e.teamMembers(ctx, ev.Subject.ID)
	default:
		return nil
	}

	var errs []error

	if !sameUser(ev.Member, ev.ActorID) {
		var direct string
		if added {
			direct = fmt.Sprintf("You have been added to %s '%s'", scopeNoun, scopeName)
		} else {
			direct = fmt.Sprintf("You have been removed from %s '%s'", scopeNoun, scopeName)
		}
		if err := e.submitSingle(ctx, *ev.Member, direct, directType, &ev.Subject, ev.Context); err != nil {
			errs = append(errs, err)
		}
	}

	memberName := contextString(ev.Context, "member_name", "A member")
	var bulk string
	if added {
		bulk = fmt.Sprintf("%s joined %s '%s'", memberName, scopeNoun, scopeName)
	} else {
		bulk = fmt.Sprintf("%s left %s '%s'", memberName, scopeNoun, scopeName)
	}
	recipients := excludeUsers(members, ev.ActorID, ev.Member)
	if len(recipients) > 0 {
		if err := e.submitBulk(ctx, recipients, bulk, bulkType, &ev.Subject, ev.Context); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// fanOutTaskActivity handles comments and attachments: the assignee gets a
// direct dispatch, remaining project members one bulk dispatch.
func (e *Engine) fanOutTaskActivity(ctx context.Context, ev event.Event) error {
	task, ok := e.loadTask(ctx, ev)
	if !ok {
		return nil
	}

	title := contextString(ev.Context, "title", task.Title)

	var (
		message          string
		notificationType domain.NotificationType
	)
	if ev.Type == event.TypeCommentAdded {
		message = fmt.Sprintf("New comment on task '%s'", title)
		notificationType = domain.NotificationCommentAdded
	} else {
		message = fmt.Sprintf("New attachment on task '%s'", title)
		notificationType = domain.NotificationAttachmentAdded
	}

	var errs []error
	if task.AssigneeID != nil && !sameUser(task.AssigneeID, ev.ActorID) {
		if err := e.submitSingle(ctx, *task.AssigneeID, message, notificationType, &ev.Subject, ev.Context); err != nil {
			errs = append(errs, err)
		}
	}

	if task.ProjectID != nil {
		members := e.projectMembers(ctx, *task.ProjectID)
		recipients := excludeUsers(members, ev.ActorID, task.AssigneeID)
		if len(recipients) > 0 {
			if err := e.submitBulk(ctx, recipients, message, notificationType, &ev.Subject, ev.Context); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Welcome submits the onboarding notification and email for a new user. The
// notification deliberately carries no subject reference.
func (e *Engine) Welcome(ctx context.Context, userID uuid.UUID) error {
	site := e.config.SiteName
	if site == "" {
		site = "the team workspace"
	}
	message := fmt.Sprintf("Welcome to %s! Your account is ready.", site)

	var errs []error
	if err := e.submitSingle(ctx, userID, message, domain.NotificationWelcome, nil, nil); err != nil {
		errs = append(errs, err)
	}

	data := map[string]string{
		"SiteName":    e.config.SiteName,
		"FrontendURL": e.config.FrontendURL,
	}
	if err := e.submitEmail(ctx, userID, email.TemplateWelcome, fmt.Sprintf("Welcome to %s", site), data); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) submitSingle(
	ctx context.Context,
	userID uuid.UUID,
	message string,
	notificationType domain.NotificationType,
	subject *domain.EntityRef,
	metadata map[string]any,
) error {
	task, err := dispatch.NewNotificationTask(e.users, e.notifications, e.logger, dispatch.NotificationPayload{
		UserID:   userID,
		Message:  message,
		Type:     notificationType,
		Subject:  subject,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to build notification dispatch: %w", err)
	}
	return e.dispatcher.Submit(ctx, task)
}

func (e *Engine) submitBulk(
	ctx context.Context,
	userIDs []uuid.UUID,
	message string,
	notificationType domain.NotificationType,
	subject *domain.EntityRef,
	metadata map[string]any,
) error {
	task, err := dispatch.NewBulkNotificationTask(e.users, e.notifications, e.logger, dispatch.BulkNotificationPayload{
		UserIDs:  userIDs,
		Message:  message,
		Type:     notificationType,
		Subject:  subject,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to build bulk dispatch: %w", err)
	}
	return e.dispatcher.Submit(ctx, task)
}

func (e *Engine) submitEmail(ctx context.Context, userID uuid.UUID, template, subject string, data map[string]string) error {
	task, err := dispatch.NewEmailTask(e.users, e.renderer, e.sender, e.logger, dispatch.EmailPayload{
		UserID:   userID,
		Template: template,
		Subject:  subject,
		Data:     data,
	})
	if err != nil {
		return fmt.Errorf("failed to build email dispatch: %w", err)
	}
	return e.dispatcher.Submit(ctx, task)
}

func (e *Engine) loadTask(ctx context.Context, ev event.Event) (*domain.Task, bool) {
	task, err := e.tasks.GetByID(ctx, ev.Subject.ID)
	if err != nil {
		if store.IsNotFoundError(err) {
			e.logger.Warn("fan-out subject no longer exists",
				"entity_kind", ev.Subject.Kind,
				"entity_id", ev.Subject.ID)
			return nil, false
		}
		e.logger.Error("failed to load fan-out subject",
			"entity_kind", ev.Subject.Kind,
			"entity_id", ev.Subject.ID,
			"error", err)
		return nil, false
	}
	return task, true
}

func (e *Engine) projectMembers(ctx context.Context, projectID uuid.UUID) []uuid.UUID {
	members, err := e.projects.ListMemberIDs(ctx, projectID)
	if err != nil {
		e.logger.Error("failed to list project members",
			"project_id", projectID,
			"error", err)
		return nil
	}
	return members
}

func (e *Engine) teamMembers(ctx context.Context, teamID uuid.UUID) []uuid.UUID {
	members, err := e.teams.ListMemberIDs(ctx, teamID)
	if err != nil {
		e.logger.Error("failed to list team members",
			"team_id", teamID,
			"error", err)
		return nil
	}
	return members
}

func sameUser(a, b *uuid.UUID) bool {
	return a != nil && b != nil && *a == *b
}

// excludeUsers filters the given ids, dropping any that match one of the
// excluded users. Order is preserved.
func excludeUsers(ids []uuid.UUID, exclude ...*uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
idLoop:
	for _, id := range ids {
		for _, ex := range exclude {
			if ex != nil && *ex == id {
				continue idLoop
			}
		}
		out = append(out, id)
	}
	return out
}

func contextString(context map[string]any, key, fallback string) string {
	if context == nil {
		return fallback
	}
	if v, ok := context[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func diffNew(ev event.Event, field string) string {
	if change, ok := ev.Diff[field]; ok {
		return change.New
	}
	return ""
}
