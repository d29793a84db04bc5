package roles

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/platform/db"
	"github.com/aulanet/aulanet/internal/shared"
)

// Repository defines persistence operations for role assignments.
type Repository interface {
	ListByUser(ctx context.Context, userID string) ([]authz.Assignment, error)
	Get(ctx context.Context, id int64) (authz.Assignment, error)
	Insert(ctx context.Context, a authz.Assignment) (authz.Assignment, error)
	SetActive(ctx context.Context, id int64, active bool) (authz.Assignment, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const assignmentColumns = `id, user_id, kind, school_id, community_id, network_id, generation_id,
	is_active, assigned_by, assigned_at, revoked_at`

// ListByUser returns every assignment for the user, revoked ones included.
func (r *PGRepository) ListByUser(ctx context.Context, userID string) ([]authz.Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM role_assignments
		WHERE user_id = $1
		ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []authz.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	authz.SortAssignments(assignments)
	return assignments, nil
}

// Get fetches a single assignment by ID.
func (r *PGRepository) Get(ctx context.Context, id int64) (authz.Assignment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM role_assignments
		WHERE id = $1`, id)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Assignment{}, shared.ErrNotFound
		}
		return authz.Assignment{}, err
	}
	return a, nil
}

// Insert creates the assignment after verifying the user exists. Both
// statements run in one transaction so a grant can never reference a user
// that was deleted concurrently.
func (r *PGRepository) Insert(ctx context.Context, a authz.Assignment) (authz.Assignment, error) {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, a.UserID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return shared.ErrNotFound
		}
		return tx.QueryRow(ctx, `
			INSERT INTO role_assignments
				(user_id, kind, school_id, community_id, network_id, generation_id, is_active, assigned_by, assigned_at)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
			RETURNING id, assigned_at`,
			a.UserID, a.Kind,
			a.Scope.SchoolID, a.Scope.CommunityID, a.Scope.NetworkID, a.Scope.GenerationID,
			a.AssignedBy, time.Now().UTC(),
		).Scan(&a.ID, &a.AssignedAt)
	})
	if err != nil {
		return authz.Assignment{}, err
	}
	a.IsActive = true
	a.RevokedAt = nil
	return a, nil
}

// SetActive revokes or reactivates an assignment. Revocation stamps
// revoked_at; rows are never deleted so the grant history is preserved.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) (authz.Assignment, error) {
	var a authz.Assignment
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var revokedAt *time.Time
		if !active {
			now := time.Now().UTC()
			revokedAt = &now
		}
		row := tx.QueryRow(ctx, `
			UPDATE role_assignments
			SET is_active = $2, revoked_at = $3
			WHERE id = $1
			RETURNING `+assignmentColumns, id, active, revokedAt)
		var err error
		a, err = scanAssignment(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return shared.ErrNotFound
		}
		return err
	})
	if err != nil {
		return authz.Assignment{}, err
	}
	return a, nil
}

func scanAssignment(row pgx.Row) (authz.Assignment, error) {
	var a authz.Assignment
	err := row.Scan(
		&a.ID, &a.UserID, &a.Kind,
		&a.Scope.SchoolID, &a.Scope.CommunityID, &a.Scope.NetworkID, &a.Scope.GenerationID,
		&a.IsActive, &a.AssignedBy, &a.AssignedAt, &a.RevokedAt,
	)
	return a, err
}

var _ Repository = (*PGRepository)(nil)
