package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/email"
)

// DailyReminderSummary reports one reminder run.
type DailyReminderSummary struct {
	UsersExamined int
	EmailsSent    int
	Skipped       int
	Failures      int
}

// RunDailyReminders emails each active, opted-in user a reminder covering
// their open tasks: due today, overdue and coming up in the next two days.
// Users with nothing in any bucket get no mail. One user's failure never
// aborts the run; it is counted and logged.
//
// Window boundaries are computed once per run from the injected clock, so
// every user in one run sees the same "today".
func (s *Scheduler) RunDailyReminders(ctx context.Context) DailyReminderSummary {
	var summary DailyReminderSummary

	now := s.now()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	todayEnd := todayStart.Add(24 * time.Hour)
	upcomingEnd := todayEnd.Add(2 * 24 * time.Hour)

	users, err := s.users.ListActive(ctx)
	if err != nil {
		s.logger.Error("failed to list users for reminders", "error", err)
		summary.Failures++
		return summary
	}

	for _, user := range users {
		summary.UsersExamined++

		if !user.EmailNotifications {
			summary.Skipped++
			continue
		}

		open, err := s.tasks.ListOpenByAssignee(ctx, user.ID)
		if err != nil {
			s.logger.Error("failed to list open tasks for reminder",
				"user_id", user.ID,
				"error", err)
			summary.Failures++
			continue
		}

		data := email.DailyReminderData{
			RecipientName: user.DisplayName(),
			SiteName:      s.config.SiteName,
		}
		for _, task := range open {
			if task.DueDate == nil {
				continue
			}
			line := taskLine(task)
			due := task.DueDate.UTC()
			switch {
			case due.Before(todayStart):
				data.Overdue = append(data.Overdue, line)
			case due.Before(todayEnd):
				data.DueToday = append(data.DueToday, line)
			case due.Before(upcomingEnd):
				data.Upcoming = append(data.Upcoming, line)
			}
		}

		if !data.HasTasks() {
			summary.Skipped++
			continue
		}

		if err := s.sendReminder(ctx, user.Email, data); err != nil {
			s.logger.Error("failed to send reminder",
				"user_id", user.ID,
				"error", err)
			summary.Failures++
			continue
		}
		summary.EmailsSent++
	}

	return summary
}

func (s *Scheduler) sendReminder(ctx context.Context, to string, data email.DailyReminderData) error {
	textBody, htmlBody, err := s.renderer.Render(email.TemplateDailyReminder, data)
	if err != nil {
		return fmt.Errorf("failed to render reminder: %w", err)
	}
	return s.sender.Send(ctx, email.Message{
		To:       to,
		Subject:  "Your task reminders for today",
		TextBody: textBody,
		HTMLBody: htmlBody,
	})
}

func taskLine(task *domain.Task) email.TaskLine {
	line := email.TaskLine{Title: task.Title}
	if task.DueDate != nil {
		line.DueDate = task.DueDate.UTC().Format("2006-01-02")
	}
	return line
}
