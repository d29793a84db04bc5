package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/shared"
)

// ErrInvalidGrant indicates a grant whose kind or scope violates the
// assignment invariants.
var ErrInvalidGrant = errors.New("roles: invalid grant")

// Invalidator drops a user's cached role snapshot after a committed mutation.
type Invalidator interface {
	Invalidate(ctx context.Context, userID string) error
}

// Enqueuer schedules a background snapshot rebuild for a user.
type Enqueuer interface {
	EnqueueSnapshotRefresh(ctx context.Context, userID string) error
}

// Service orchestrates the role assignment lifecycle. Every mutation first
// commits, then invalidates the user's snapshot; invalidation is never issued
// for uncommitted state.
type Service struct {
	repo     Repository
	cache    Invalidator
	audit    *shared.AuditLogger
	jobs     Enqueuer
	idem     *shared.IdempotencyStore
	logger   *slog.Logger
	validate *validator.Validate
}

// NewService builds a Service instance. audit, jobs and idem may be nil.
func NewService(repo Repository, cache Invalidator, audit *shared.AuditLogger, jobs Enqueuer, idem *shared.IdempotencyStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		audit:    audit,
		jobs:     jobs,
		idem:     idem,
		logger:   logger,
		validate: validator.New(),
	}
}

// requiredDimension maps role kinds to the scope dimension their grants must
// carry. Kinds absent from the map (admin, consultant) may be global or carry
// any single dimension.
var requiredDimension = map[authz.RoleKind]string{
	authz.RoleSchoolLeadership:  "school_id",
	authz.RoleCommunityManager:  "community_id",
	authz.RoleCommunityLeader:   "community_id",
	authz.RoleGenerationLeader:  "generation_id",
	authz.RoleNetworkSupervisor: "network_id",
	authz.RoleTeacher:           "school_id",
	authz.RoleStudent:           "school_id",
}

// Grant creates an active role assignment. When idemKey is non-empty the
// grant is recorded against it, so a retried request does not insert a second
// identical row.
func (s *Service) Grant(ctx context.Context, in GrantInput, idemKey string) (authz.Assignment, error) {
	if err := s.validate.Struct(in); err != nil {
		return authz.Assignment{}, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
	}
	kind := authz.RoleKind(in.Kind)
	if !kind.Valid() {
		return authz.Assignment{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidGrant, in.Kind)
	}
	scope := in.Scope()
	if err := validateScope(kind, scope); err != nil {
		return authz.Assignment{}, err
	}

	if idemKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idemKey, "roles:grant"); err != nil {
			return authz.Assignment{}, err
		}
	}

	assignment, err := s.repo.Insert(ctx, authz.Assignment{
		UserID:     in.UserID,
		Kind:       kind,
		Scope:      scope,
		AssignedBy: in.AssignedBy,
	})
	if err != nil {
		if idemKey != "" && s.idem != nil {
			if derr := s.idem.Delete(ctx, idemKey); derr != nil {
				s.logger.Warn("roles: idempotency rollback", slog.Any("error", derr))
			}
		}
		return authz.Assignment{}, err
	}

	s.afterMutation(ctx, assignment, "roles.grant", in.AssignedBy)
	return assignment, nil
}

// Revoke deactivates an assignment, preserving its history.
func (s *Service) Revoke(ctx context.Context, id int64, actorID string) (authz.Assignment, error) {
	assignment, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return authz.Assignment{}, err
	}
	s.afterMutation(ctx, assignment, "roles.revoke", actorID)
	return assignment, nil
}

// Reactivate re-enables a previously revoked assignment.
func (s *Service) Reactivate(ctx context.Context, id int64, actorID string) (authz.Assignment, error) {
	assignment, err := s.repo.SetActive(ctx, id, true)
	if err != nil {
		return authz.Assignment{}, err
	}
	s.afterMutation(ctx, assignment, "roles.reactivate", actorID)
	return assignment, nil
}

// ListByUser returns the user's full assignment history.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]authz.Assignment, error) {
	return s.repo.ListByUser(ctx, userID)
}

// afterMutation runs the post-commit bookkeeping: snapshot invalidation,
// warm-up refresh and audit. None of these can fail the mutation itself.
func (s *Service) afterMutation(ctx context.Context, a authz.Assignment, action, actorID string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, a.UserID); err != nil {
			s.logger.Warn("roles: snapshot invalidation",
				slog.String("user_id", a.UserID), slog.Any("error", err))
		}
	}
	if s.jobs != nil {
		if err := s.jobs.EnqueueSnapshotRefresh(ctx, a.UserID); err != nil {
			s.logger.Warn("roles: enqueue snapshot refresh", slog.Any("error", err))
		}
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   action,
			Entity:   "role_assignment",
			EntityID: fmt.Sprintf("%d", a.ID),
			Meta: map[string]any{
				"user_id": a.UserID,
				"kind":    string(a.Kind),
				"scope":   a.Scope.String(),
			},
		})
		if err != nil {
			s.logger.Warn("roles: audit record", slog.Any("error", err))
		}
	}
}

func validateScope(kind authz.RoleKind, scope authz.Scope) error {
	if scope.Dimensions() > 1 {
		return fmt.Errorf("%w: at most one scope dimension per assignment", ErrInvalidGrant)
	}
	dim, ok := requiredDimension[kind]
	if !ok {
		return nil
	}
	populated := ""
	switch {
	case scope.SchoolID != nil:
		populated = "school_id"
	case scope.CommunityID != nil:
		populated = "community_id"
	case scope.NetworkID != nil:
		populated = "network_id"
	case scope.GenerationID != nil:
		populated = "generation_id"
	}
	if populated != dim {
		return fmt.Errorf("%w: kind %s requires %s", ErrInvalidGrant, kind, dim)
	}
	return nil
}
