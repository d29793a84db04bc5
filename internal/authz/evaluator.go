package authz

import (
	"context"
	"log/slog"

	"github.com/aulanet/aulanet/internal/observability"
)

// SnapshotSource yields the current role snapshot for a user.
type SnapshotSource interface {
	Get(ctx context.Context, userID string) (Snapshot, error)
}

// Evaluator composes role kind, scope match and the requested action into an
// allow/deny decision.
type Evaluator struct {
	snapshots SnapshotSource
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(snapshots SnapshotSource, logger *slog.Logger, metrics *observability.Metrics) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{snapshots: snapshots, logger: logger, metrics: metrics}
}

// Authorize decides whether the user may perform action on resource.
//
// The decision is always usable: when the role store cannot be reached the
// returned decision is a deny with reason store_unavailable and the error is
// returned alongside so the caller can answer 5xx instead of 403. There is no
// outcome a caller could mistake for allow.
func (e *Evaluator) Authorize(ctx context.Context, userID string, action Action, resource Resource) (Decision, error) {
	snap, err := e.snapshots.Get(ctx, userID)
	if err != nil {
		e.logger.Warn("authz: snapshot fetch failed, denying",
			slog.String("user_id", userID),
			slog.String("action", string(action)),
			slog.Any("error", err))
		decision := deny(ReasonStoreUnavailable)
		e.metrics.ObserveDecision(decision.Allow, string(decision.Reason))
		return decision, err
	}

	decision := Evaluate(snap, action, resource)
	e.metrics.ObserveDecision(decision.Allow, string(decision.Reason))
	return decision, nil
}

// Evaluate is the pure decision function over a snapshot. Assignments are
// combined with OR: one assignment granting both the capability and the scope
// suffices, and roles are never intersected.
func Evaluate(snap Snapshot, action Action, resource Resource) Decision {
	// Unscoped admin overrides everything, before any capability lookup.
	for _, a := range snap.Assignments {
		if a.IsGlobalAdmin() {
			return allow(ReasonGlobalAdmin)
		}
	}

	if !KnownAction(action) {
		return deny(ReasonUnknownAction)
	}

	active := 0
	capable := 0
	for _, a := range snap.Assignments {
		if !a.IsActive {
			continue
		}
		active++
		if !HasCapability(a.Kind, action) {
			continue
		}
		capable++
		if a.Scope.Matches(resource.Scope) {
			return allow(ReasonScopedRole)
		}
	}

	switch {
	case active == 0:
		return deny(ReasonNoRoles)
	case capable == 0:
		return deny(ReasonNoCapability)
	default:
		return deny(ReasonScopeMismatch)
	}
}

// AllowedActions returns every action the user may perform on the resource.
func (e *Evaluator) AllowedActions(ctx context.Context, userID string, resource Resource) ([]Action, error) {
	snap, err := e.snapshots.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	allowed := make([]Action, 0, len(AllActions))
	for _, action := range AllActions {
		if Evaluate(snap, action, resource).Allow {
			allowed = append(allowed, action)
		}
	}
	return allowed, nil
}
