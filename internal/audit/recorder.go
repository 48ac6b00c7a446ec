package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/platform/logger"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// Entry describes one auditable action. The recorder turns it into a durable
// ActivityEvent row.
type Entry struct {
	// ActorID is the user who performed the action, nil for system actions.
	ActorID *uuid.UUID

	// Action is the kind of action performed.
	Action domain.ActivityAction

	// Subject is the entity the action was performed on, nil when the
	// action has no subject (e.g. login).
	Subject *domain.EntityRef

	// Metadata is a free-form snapshot: title, diff, changed-field list.
	// For delete-triggered entries the caller must capture display fields
	// (name/title) before cascading deletes remove the referenced rows.
	Metadata map[string]any

	// IPAddress and UserAgent optionally identify the originating request.
	IPAddress string
	UserAgent string

	// BestEffort suppresses storage errors: the failure is logged and the
	// caller's mutation proceeds. Mutation-triggered entries set this so
	// audit logging can never fail or roll back the triggering write.
	BestEffort bool
}

// Recorder writes ActivityEvent rows synchronously at the moment of
// mutation. The audit log is the record of record, so it is written inline
// with the triggering write rather than through the async dispatcher.
type Recorder struct {
	events store.ActivityEventStore
	logger *slog.Logger
}

// NewRecorder creates a Recorder over the given event store.
func NewRecorder(events store.ActivityEventStore, log *slog.Logger) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	return &Recorder{
		events: events,
		logger: log.With(slog.String("component", "audit_recorder")),
	}
}

// WithStore returns a Recorder bound to a different event store, typically
// one scoped to the caller's transaction so the audit row commits or rolls
// back with the entity mutation.
func (r *Recorder) WithStore(events store.ActivityEventStore) *Recorder {
	return &Recorder{events: events, logger: r.logger}
}

// Record writes exactly one ActivityEvent for the entry. For best-effort
// entries a storage failure is logged and swallowed so the triggering
// mutation never fails or rolls back on account of audit logging.
func (r *Recorder) Record(ctx context.Context, entry Entry) (*domain.ActivityEvent, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	event, err := domain.NewActivityEvent(entry.ActorID, entry.Action, entry.Subject, entry.Metadata)
	if err != nil {
		return nil, fmt.Errorf("invalid activity event: %w", err)
	}
	event.IPAddress = entry.IPAddress
	event.UserAgent = entry.UserAgent

	if err := r.events.Create(ctx, event); err != nil {
		if entry.BestEffort {
			log.Error("failed to record activity event, continuing",
				slog.String("action", string(entry.Action)),
				slog.String("error", err.Error()))
			return nil, nil
		}
		return nil, fmt.Errorf("failed to record activity event: %w", err)
	}

	return event, nil
}
