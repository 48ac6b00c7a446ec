package scheduler

import (
	"context"
	"fmt"

	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/dispatch"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
)

// ArchivalSummary reports one archival run.
type ArchivalSummary struct {
	Examined               int
	Archived               int
	SkippedIncomplete      int
	SkippedAlreadyArchived int
	Failures               int
}

// RunArchival archives completed projects that have sat untouched past the
// staleness window. A project with any task not yet done is skipped: a
// "completed" project with live work is a data inconsistency the job must
// not paper over. The archival marker write is a targeted no-op when
// already set, so a rerun neither re-archives nor re-notifies.
func (s *Scheduler) RunArchival(ctx context.Context) ArchivalSummary {
	var summary ArchivalSummary

	now := s.now()
	cutoff := now.Add(-s.config.staleness())

	candidates, err := s.projects.ListCompletedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("failed to list archival candidates", "error", err)
		summary.Failures++
		return summary
	}

	for _, project := range candidates {
		summary.Examined++

		incomplete, err := s.tasks.CountIncompleteByProject(ctx, project.ID)
		if err != nil {
			s.logger.Error("failed to count incomplete tasks",
				"project_id", project.ID,
				"error", err)
			summary.Failures++
			continue
		}
		if incomplete > 0 {
			s.logger.Warn("skipping archival of completed project with open tasks",
				"project_id", project.ID,
				"incomplete_tasks", incomplete)
			summary.SkippedIncomplete++
			continue
		}

		changed, err := s.projects.MarkArchived(ctx, project.ID, now)
		if err != nil {
			s.logger.Error("failed to mark project archived",
				"project_id", project.ID,
				"error", err)
			summary.Failures++
			continue
		}
		if !changed {
			summary.SkippedAlreadyArchived++
			continue
		}

		if err := s.notifyArchived(ctx, project); err != nil {
			// The project is archived; only the notification failed.
			s.logger.Error("failed to notify members of archival",
				"project_id", project.ID,
				"error", err)
			summary.Failures++
		}
		summary.Archived++
	}

	return summary
}

func (s *Scheduler) notifyArchived(ctx context.Context, project *domain.Project) error {
	members, err := s.projects.ListMemberIDs(ctx, project.ID)
	if err != nil {
		return fmt.Errorf("failed to list project members: %w", err)
	}
	if len(members) == 0 {
		return nil
	}

	task, err := dispatch.NewBulkNotificationTask(s.users, s.notifications, s.logger, dispatch.BulkNotificationPayload{
		UserIDs: members,
		Message: fmt.Sprintf("Project '%s' has been archived", project.Name),
		Type:    domain.NotificationProjectUpdated,
		Subject: domain.NewEntityRef(domain.EntityProject, project.ID),
		Metadata: map[string]any{
			"project_name": project.Name,
			"archived_at":  s.now().Format("2006-01-02"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build archival notification: %w", err)
	}
	return s.dispatcher.Submit(ctx, task)
}
