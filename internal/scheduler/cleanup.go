package scheduler

import (
	"context"
	"fmt"
)

// CleanupSummary reports one cleanup run.
type CleanupSummary struct {
	Deleted int64
}

// RunCleanup deletes read notifications older than the retention window.
// Unread notifications are never deleted, no matter how old: an unread
// notification is information the user has not consumed yet.
func (s *Scheduler) RunCleanup(ctx context.Context) (CleanupSummary, error) {
	cutoff := s.now().Add(-s.config.retention())

	deleted, err := s.notifications.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return CleanupSummary{}, fmt.Errorf("failed to delete stale notifications: %w", err)
	}

	return CleanupSummary{Deleted: deleted}, nil
}
