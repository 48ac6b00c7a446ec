package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/platform/logger"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// PostgresActivityEventStore implements store.ActivityEventStore using
// PostgreSQL. The table is append-only; no update or delete statements
// exist in this store.
type PostgresActivityEventStore struct {
	db store.DBTX
}

// NewPostgresActivityEventStore creates a new PostgresActivityEventStore.
func NewPostgresActivityEventStore(db store.DBTX) *PostgresActivityEventStore {
	return &PostgresActivityEventStore{db: db}
}

// WithTx returns a copy of the store bound to the provided transaction.
func (s *PostgresActivityEventStore) WithTx(tx *sql.Tx) store.ActivityEventStore {
	return &PostgresActivityEventStore{db: tx}
}

const activityColumns = `id, actor_id, action, subject_kind, subject_id, metadata, ip_address, user_agent, occurred_at`

// Create appends an activity event to the log.
func (s *PostgresActivityEventStore) Create(ctx context.Context, event *domain.ActivityEvent) error {
	log := logger.FromContext(ctx)

	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	var metadata []byte
	if event.Metadata != nil {
		var err error
		metadata, err = json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal event metadata: %w", err)
		}
	}

	var subjectKind, subjectID any
	if event.Subject != nil {
		subjectKind = string(event.Subject.Kind)
		subjectID = event.Subject.ID
	}

	query := `
		INSERT INTO activity_events (id, actor_id, action, subject_kind, subject_id, metadata, ip_address, user_agent, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.ActorID,
		event.Action,
		subjectKind,
		subjectID,
		metadata,
		nullableString(event.IPAddress),
		nullableString(event.UserAgent),
		event.Timestamp,
	)
	if err != nil {
		log.Error("failed to create activity event",
			"event_id", event.ID,
			"action", event.Action,
			"error", err)
		return MapError(err)
	}

	return nil
}

// ListBySubject returns the most recent events for a subject, newest first.
func (s *PostgresActivityEventStore) ListBySubject(ctx context.Context, subject domain.EntityRef, limit int) ([]*domain.ActivityEvent, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activity_events
		WHERE subject_kind = $1 AND subject_id = $2
		ORDER BY occurred_at DESC
		LIMIT $3
	`
	return s.list(ctx, query, string(subject.Kind), subject.ID, normalizeLimit(limit))
}

// ListByActor returns the most recent events performed by a user, newest
// first.
func (s *PostgresActivityEventStore) ListByActor(ctx context.Context, actorID uuid.UUID, limit int) ([]*domain.ActivityEvent, error) {
	query := `
		SELECT ` + activityColumns + `
		FROM activity_events
		WHERE actor_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2
	`
	return s.list(ctx, query, actorID, normalizeLimit(limit))
}

func (s *PostgresActivityEventStore) list(ctx context.Context, query string, args ...any) ([]*domain.ActivityEvent, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var events []*domain.ActivityEvent
	for rows.Next() {
		var (
			event       domain.ActivityEvent
			actorID     uuid.NullUUID
			subjectKind sql.NullString
			subjectID   uuid.NullUUID
			metadata    []byte
			ipAddress   sql.NullString
			userAgent   sql.NullString
		)
		err := rows.Scan(
			&event.ID,
			&actorID,
			&event.Action,
			&subjectKind,
			&subjectID,
			&metadata,
			&ipAddress,
			&userAgent,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity event row: %w", err)
		}

		if actorID.Valid {
			id := actorID.UUID
			event.ActorID = &id
		}
		if subjectKind.Valid && subjectID.Valid {
			event.Subject = &domain.EntityRef{
				Kind: domain.EntityKind(subjectKind.String),
				ID:   subjectID.UUID,
			}
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event metadata: %w", err)
			}
		}
		event.IPAddress = ipAddress.String
		event.UserAgent = userAgent.String

		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity event rows: %w", err)
	}

	return events, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
