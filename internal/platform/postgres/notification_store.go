package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/platform/logger"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// PostgresNotificationStore implements store.NotificationStore using
// PostgreSQL.
type PostgresNotificationStore struct {
	db store.DBTX
}

// NewPostgresNotificationStore creates a new PostgresNotificationStore.
func NewPostgresNotificationStore(db store.DBTX) *PostgresNotificationStore {
	return &PostgresNotificationStore{db: db}
}

// WithTx returns a copy of the store bound to the provided transaction.
func (s *PostgresNotificationStore) WithTx(tx *sql.Tx) store.NotificationStore {
	return &PostgresNotificationStore{db: tx}
}

const notificationColumns = `id, user_id, message, type, read, read_at, subject_kind, subject_id, metadata, created_at`

// Create saves a new notification. Rows are always inserted unread.
func (s *PostgresNotificationStore) Create(ctx context.Context, n *domain.Notification) error {
	log := logger.FromContext(ctx)

	if err := n.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	var metadata []byte
	if n.Metadata != nil {
		var err error
		metadata, err = json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal notification metadata: %w", err)
		}
	}

	var subjectKind, subjectID any
	if n.Subject != nil {
		subjectKind = string(n.Subject.Kind)
		subjectID = n.Subject.ID
	}

	query := `
		INSERT INTO notifications (id, user_id, message, type, read, read_at, subject_kind, subject_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, FALSE, NULL, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Message,
		n.Type,
		subjectKind,
		subjectID,
		metadata,
		n.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create notification",
			"notification_id", n.ID,
			"user_id", n.UserID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID retrieves a notification by its ID.
func (s *PostgresNotificationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`

	n, err := scanNotification(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotificationNotFound
		}
		return nil, MapError(err)
	}
	return n, nil
}

// MarkRead marks the notification read on behalf of the requesting user.
// Marking an already-read notification again is a no-op.
func (s *PostgresNotificationStore) MarkRead(ctx context.Context, id, requestingUserID uuid.UUID) error {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != requestingUserID {
		return fmt.Errorf("%w: notification belongs to another user", store.ErrForbidden)
	}
	if n.Read {
		return nil
	}

	query := `
		UPDATE notifications
		SET read = TRUE, read_at = $1
		WHERE id = $2 AND read = FALSE
	`
	if _, err := s.db.ExecContext(ctx, query, time.Now().UTC(), id); err != nil {
		return MapError(err)
	}
	return nil
}

// MarkUnread reverts the notification to unread on behalf of the requesting
// user.
func (s *PostgresNotificationStore) MarkUnread(ctx context.Context, id, requestingUserID uuid.UUID) error {
	n, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != requestingUserID {
		return fmt.Errorf("%w: notification belongs to another user", store.ErrForbidden)
	}
	if !n.Read {
		return nil
	}

	query := `
		UPDATE notifications
		SET read = FALSE, read_at = NULL
		WHERE id = $1 AND read = TRUE
	`
	if _, err := s.db.ExecContext(ctx, query, id); err != nil {
		return MapError(err)
	}
	return nil
}

// MarkAllRead marks every currently-unread notification for the user as
// read in one statement and returns the number of rows affected.
func (s *PostgresNotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET read = TRUE, read_at = $1
		WHERE user_id = $2 AND read = FALSE
	`
	result, err := s.db.ExecContext(ctx, query, time.Now().UTC(), userID)
	if err != nil {
		return 0, MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected, nil
}

// CountUnread returns the number of unread notifications for the user.
func (s *PostgresNotificationStore) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE`
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// CountTotal returns the total number of notifications for the user.
func (s *PostgresNotificationStore) CountTotal(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE user_id = $1`
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// List returns the user's notifications, newest first, applying the filter.
func (s *PostgresNotificationStore) List(ctx context.Context, userID uuid.UUID, filter store.NotificationFilter) ([]*domain.Notification, error) {
	log := logger.FromContext(ctx)

	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`
	args := []any{userID}

	if filter.Read != nil {
		args = append(args, *filter.Read)
		query += fmt.Sprintf(" AND read = $%d", len(args))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}

	query += " ORDER BY created_at DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list notifications",
			"user_id", userID,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var notifications []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification row: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}

	return notifications, nil
}

// DeleteReadBefore deletes read notifications created before the cutoff.
// The read predicate is part of the statement, so unread rows can never be
// deleted regardless of age.
func (s *PostgresNotificationStore) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	query := `DELETE FROM notifications WHERE read = TRUE AND created_at < $1`
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		log.Error("failed to delete stale notifications", "error", err)
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for the shared scan helper.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var (
		n           domain.Notification
		readAt      sql.NullTime
		subjectKind sql.NullString
		subjectID   uuid.NullUUID
		metadata    []byte
	)

	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Message,
		&n.Type,
		&n.Read,
		&readAt,
		&subjectKind,
		&subjectID,
		&metadata,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if readAt.Valid {
		t := readAt.Time.UTC()
		n.ReadAt = &t
	}
	if subjectKind.Valid && subjectID.Valid {
		n.Subject = &domain.EntityRef{
			Kind: domain.EntityKind(subjectKind.String),
			ID:   subjectID.UUID,
		}
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &n.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal notification metadata: %w", err)
		}
	}

	return &n, nil
}
