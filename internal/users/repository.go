package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aulanet/aulanet/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListUsers returns one page of users plus the total count.
func (r *Repository) ListUsers(ctx context.Context, page, perPage int) ([]User, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	rows, err := r.pool.Query(ctx, `
		SELECT id, email, name, is_active, created_at, updated_at
		FROM users
		ORDER BY created_at, id
		LIMIT $1 OFFSET $2`, perPage, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var user User
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &user.IsActive, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// GetUser fetches a user by ID.
func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, is_active, created_at, updated_at
		FROM users
		WHERE id = $1`, id).
		Scan(&user.ID, &user.Email, &user.Name, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	return user, nil
}

// CreateUser inserts a new account. Email uniqueness violations map to
// shared.ErrDuplicate.
func (r *Repository) CreateUser(ctx context.Context, user User) (User, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, is_active, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, TRUE, $4, NOW(), NOW())
		RETURNING created_at, updated_at`,
		user.ID, user.Email, user.Name, user.PasswordHash).
		Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if shared.IsUniqueViolation(err) {
			return User{}, shared.ErrDuplicate
		}
		return User{}, err
	}
	user.IsActive = true
	return user, nil
}
