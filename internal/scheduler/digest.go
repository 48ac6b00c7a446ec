package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/email"
)

// WeeklyDigestSummary reports one digest run.
type WeeklyDigestSummary struct {
	UsersExamined int
	EmailsSent    int
	Skipped       int
	Failures      int
}

// RunWeeklyDigest emails each active, opted-in user a summary of their
// week: tasks completed and created in the trailing seven days, open tasks
// currently assigned to them, deadlines falling in the next seven days and
// their active project memberships. A user with nothing in any category is
// skipped. Each list is capped for readability; the counts always reflect
// the full totals.
func (s *Scheduler) RunWeeklyDigest(ctx context.Context) WeeklyDigestSummary {
	var summary WeeklyDigestSummary

	until := s.now()
	since := until.Add(-7 * 24 * time.Hour)

	users, err := s.users.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list users for digest", "error", err)
		summary.Failures++
		return summary
	}

	listCap := s.config.digestCap()

	for _, user := range users {
		summary.UsersExamined++

		if !user.EmailNotifications {
			summary.Skipped++
			continue
		}

		completed, err := s.tasks.ListCompletedByUser(ctx, user.ID, since, until)
		if err != nil {
			s.logger.Error("failed to list completed tasks for digest",
				"user_id", user.ID,
				"error", err)
			summary.Failures++
			continue
		}

		created, err := s.tasks.ListCreatedByUser(ctx, user.ID, since, until)
		if err != nil {
			s.logger.Error("failed to list created tasks for digest",
				"user_id", user.ID,
				"error", err)
			summary.Failures++
			continue
		}

		assigned, err := s.tasks.ListOpenByAssignee(ctx, user.ID)
		if err != nil {
			s.logger.Error("failed to list assigned tasks for digest",
				"user_id", user.ID,
				"error", err)
			summary.Failures++
			continue
		}

		projects, err := s.projects.ListActiveByMember(ctx, user.ID)
		if err != nil {
			s.logger.Error("failed to list projects for digest",
				"user_id", user.ID,
				"error", err)
			summary.Failures++
			continue
		}

		if len(completed) == 0 && len(created) == 0 && len(assigned) == 0 && len(projects) == 0 {
			summary.Skipped++
			continue
		}

		// Deadlines are the subset of assigned work due in the week ahead.
		deadlineCut := until.Add(7 * 24 * time.Hour)
		var deadlines []*domain.Task
		for _, task := range assigned {
			if task.DueDate == nil {
				continue
			}
			due := task.DueDate.UTC()
			if !due.Before(until) && due.Before(deadlineCut) {
				deadlines = append(deadlines, task)
			}
		}

		data := email.WeeklyDigestData{
			RecipientName:  user.DisplayName(),
			WeekStart:      since.Format("2006-01-02"),
			WeekEnd:        until.Format("2006-01-02"),
			CompletedCount: len(completed),
			CreatedCount:   len(created),
			AssignedCount:  len(assigned),
			DeadlineCount:  len(deadlines),
			SiteName:       s.config.SiteName,
		}
		for i, task := range completed {
			if i >= listCap {
				break
			}
			data.Completed = append(data.Completed, taskLine(task))
		}
		for i, task := range created {
			if i >= listCap {
				break
			}
			data.Created = append(data.Created, taskLine(task))
		}
		for i, task := range assigned {
			if i >= listCap {
				break
			}
			data.Assigned = append(data.Assigned, taskLine(task))
		}
		for i, task := range deadlines {
			if i >= listCap {
				break
			}
			data.Deadlines = append(data.Deadlines, taskLine(task))
		}
		for i, project := range projects {
			if i >= listCap {
				break
			}
			data.ActiveProjects = append(data.ActiveProjects, project.Name)
		}

		if err := s.sendDigest(ctx, user.Email, data); err != nil {
			s.logger.Error("failed to send digest",
				"user_id", user.ID,
				"error", err)
			summary.Failures++
			continue
		}
		summary.EmailsSent++
	}

	return summary
}

func (s *Scheduler) sendDigest(ctx context.Context, to string, data email.WeeklyDigestData) error {
	textBody, htmlBody, err := s.renderer.Render(email.TemplateWeeklyDigest, data)
	if err != nil {
		return fmt.Errorf("failed to render digest: %w", err)
	}
	return s.sender.Send(ctx, email.Message{
		To:       to,
		Subject:  "Your week in review",
		TextBody: textBody,
		HTMLBody: htmlBody,
	})
}
