package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/platform/logger"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// PostgresProjectStore implements store.ProjectStore using PostgreSQL.
type PostgresProjectStore struct {
	db store.DBTX
}

// NewPostgresProjectStore creates a new PostgresProjectStore.
func NewPostgresProjectStore(db store.DBTX) *PostgresProjectStore {
	return &PostgresProjectStore{db: db}
}

const projectColumns = `id, name, description, status, team_id, owner_id, archived_at, created_at, updated_at`

// GetByID retrieves a project by its ID.
func (s *PostgresProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	project, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProjectNotFound
		}
		return nil, MapError(err)
	}
	return project, nil
}

// ListMemberIDs returns the user IDs of all members of the project.
func (s *PostgresProjectStore) ListMemberIDs(ctx context.Context, projectID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM project_members WHERE project_id = $1 ORDER BY joined_at ASC`

	rows, err := s.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectIDs(rows, "project member")
}

// ListActiveByMember returns the active projects the user belongs to.
func (s *PostgresProjectStore) ListActiveByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	query := `
		SELECT p.id, p.name, p.description, p.status, p.team_id, p.owner_id, p.archived_at, p.created_at, p.updated_at
		FROM projects p
		JOIN project_members pm ON pm.project_id = p.id
		WHERE pm.user_id = $1 AND p.status = $2
		ORDER BY p.name ASC
	`
	return s.list(ctx, query, userID, domain.ProjectStatusActive)
}

// ListCompletedBefore returns completed, not-yet-archived projects untouched
// since before the cutoff.
func (s *PostgresProjectStore) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]*domain.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects
		WHERE status = $1 AND archived_at IS NULL AND updated_at < $2
		ORDER BY updated_at ASC
	`
	return s.list(ctx, query, domain.ProjectStatusCompleted, cutoff)
}

// MarkArchived sets the archival marker if it is not already set. Reports
// whether the row changed.
func (s *PostgresProjectStore) MarkArchived(ctx context.Context, projectID uuid.UUID, archivedAt time.Time) (bool, error) {
	log := logger.FromContext(ctx)

	query := `
		UPDATE projects
		SET archived_at = $1
		WHERE id = $2 AND archived_at IS NULL
	`
	result, err := s.db.ExecContext(ctx, query, archivedAt, projectID)
	if err != nil {
		log.Error("failed to mark project archived",
			"project_id", projectID,
			"error", err)
		return false, MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

func (s *PostgresProjectStore) list(ctx context.Context, query string, args ...any) ([]*domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var projects []*domain.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project row: %w", err)
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project rows: %w", err)
	}
	return projects, nil
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		project     domain.Project
		description sql.NullString
		teamID      uuid.NullUUID
		ownerID     uuid.NullUUID
		archivedAt  sql.NullTime
	)
	err := row.Scan(
		&project.ID,
		&project.Name,
		&description,
		&project.Status,
		&teamID,
		&ownerID,
		&archivedAt,
		&project.CreatedAt,
		&project.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	project.Description = description.String
	if teamID.Valid {
		id := teamID.UUID
		project.TeamID = &id
	}
	if ownerID.Valid {
		id := ownerID.UUID
		project.OwnerID = &id
	}
	if archivedAt.Valid {
		t := archivedAt.Time.UTC()
		project.ArchivedAt = &t
	}
	return &project, nil
}
