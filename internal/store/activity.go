package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
)

// ActivityEventStore defines the interface for the append-only audit log.
// Events are never updated or deleted through this interface.
type ActivityEventStore interface {
	// Create appends an activity event to the log.
	Create(ctx context.Context, event *domain.ActivityEvent) error

	// ListBySubject returns the most recent events for a subject entity,
	// newest first.
	ListBySubject(ctx context.Context, subject domain.EntityRef, limit int) ([]*domain.ActivityEvent, error)

	// ListByActor returns the most recent events performed by a user,
	// newest first.
	ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]*domain.ActivityEvent, error)

	// WithTx returns a new ActivityEventStore instance that uses the
	// provided transaction. Used to append the audit record in the same
	// transaction as the entity mutation that caused it.
	WithTx(tx *sql.Tx) ActivityEventStore
}
