package authz

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads role assignments from the authoritative store.
type Repository interface {
	// ActiveAssignments returns every active assignment for the user, sorted
	// by kind priority then ID. It returns the full set or an error wrapping
	// ErrStoreUnavailable, never a partial list.
	ActiveAssignments(ctx context.Context, userID string) ([]Assignment, error)
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// ActiveAssignments returns all active role assignments for a user.
func (r *PGRepository) ActiveAssignments(ctx context.Context, userID string) ([]Assignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, kind, school_id, community_id, network_id, generation_id,
		       is_active, assigned_by, assigned_at, revoked_at
		FROM role_assignments
		WHERE user_id = $1 AND is_active
		ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: query assignments: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var assignments []Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(
			&a.ID, &a.UserID, &a.Kind,
			&a.Scope.SchoolID, &a.Scope.CommunityID, &a.Scope.NetworkID, &a.Scope.GenerationID,
			&a.IsActive, &a.AssignedBy, &a.AssignedAt, &a.RevokedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan assignment: %v", ErrStoreUnavailable, err)
		}
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read assignments: %v", ErrStoreUnavailable, err)
	}

	SortAssignments(assignments)
	return assignments, nil
}

var _ Repository = (*PGRepository)(nil)
