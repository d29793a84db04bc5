package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/aulanet/aulanet/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, page, perPage int) ([]User, int, error)
	GetUser(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, user User) (User, error)
}

// Service handles user business logic.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// ListUsers returns one page of users with pagination metadata.
func (s *Service) ListUsers(ctx context.Context, page, perPage int) ([]User, shared.Pagination, error) {
	p := shared.NewPagination(page, perPage, 0)
	users, total, err := s.repo.ListUsers(ctx, p.Page, p.PerPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(p.Page, p.PerPage, total), nil
}

// GetUser fetches one user.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser registers a new account with a bcrypt password hash.
func (s *Service) CreateUser(ctx context.Context, in NewUserInput) (User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("users: validate: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}

	return s.repo.CreateUser(ctx, User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: string(hash),
	})
}
