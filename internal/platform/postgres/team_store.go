package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/domain"
	"github.com/sakshi-suryawanshi/task-management-system-sub000/internal/store"
)

// PostgresTeamStore implements store.TeamStore using PostgreSQL.
type PostgresTeamStore struct {
	db store.DBTX
}

// NewPostgresTeamStore creates a new PostgresTeamStore.
func NewPostgresTeamStore(db store.DBTX) *PostgresTeamStore {
	return &PostgresTeamStore{db: db}
}

// GetByID retrieves a team by its ID.
func (s *PostgresTeamStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error) {
	query := `SELECT id, name, description, owner_id, created_at, updated_at FROM teams WHERE id = $1`

	var (
		team        domain.Team
		description sql.NullString
		ownerID     uuid.NullUUID
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&team.ID,
		&team.Name,
		&description,
		&ownerID,
		&team.CreatedAt,
		&team.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTeamNotFound
		}
		return nil, MapError(err)
	}
	team.Description = description.String
	if ownerID.Valid {
		oid := ownerID.UUID
		team.OwnerID = &oid
	}
	return &team, nil
}

// ListMemberIDs returns the user IDs of all members of the team.
func (s *PostgresTeamStore) ListMemberIDs(ctx context.Context, teamID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT user_id FROM team_members WHERE team_id = $1 ORDER BY joined_at ASC`

	rows, err := s.db.QueryContext(ctx, query, teamID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectIDs(rows, "team member")
}

// collectIDs drains a single-column uuid result set.
func collectIDs(rows *sql.Rows, label string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", label, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", label, err)
	}
	return ids, nil
}
