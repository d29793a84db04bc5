package authz

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/aulanet/aulanet/internal/observability"
)

const snapshotKeyPrefix = "authz:snapshot:"

// Snapshot is a denormalized, broadly readable projection of a user's active
// role assignments. It exists so that deciding access never requires an
// access-checked read of the role table itself, and it is rebuildable from
// the assignment set at any time.
type Snapshot struct {
	UserID      string       `json:"user_id"`
	Assignments []Assignment `json:"assignments"`
	IsAdmin     bool         `json:"is_admin"`
	IsStaff     bool         `json:"is_staff"`
	BuiltAt     time.Time    `json:"built_at"`
}

// BuildSnapshot derives a snapshot from the active assignment set.
func BuildSnapshot(userID string, assignments []Assignment) Snapshot {
	snap := Snapshot{
		UserID:      userID,
		Assignments: assignments,
		BuiltAt:     time.Now().UTC(),
	}
	for _, a := range assignments {
		if !a.IsActive {
			continue
		}
		switch a.Kind {
		case RoleAdmin:
			snap.IsAdmin = true
			snap.IsStaff = true
		case RoleSchoolLeadership, RoleTeacher:
			snap.IsStaff = true
		}
	}
	return snap
}

// SnapshotKey builds the cache key for a user's snapshot.
func SnapshotKey(userID string) string {
	return snapshotKeyPrefix + userID
}

// SnapshotCache serves role snapshots from Redis, rebuilding from the
// repository on miss. Invalidation is deletion only: a mutation path deletes
// the key after its commit, and the next read rebuilds. Because nothing ever
// writes a snapshot derived from pre-commit state, concurrent mutations
// cannot race a stale entry back in.
type SnapshotCache struct {
	client  *redis.Client
	repo    Repository
	ttl     time.Duration
	logger  *slog.Logger
	metrics *observability.Metrics
	group   singleflight.Group
}

// NewSnapshotCache constructs a SnapshotCache. A nil client disables caching;
// every Get then reads the repository directly.
func NewSnapshotCache(client *redis.Client, repo Repository, ttl time.Duration, logger *slog.Logger, metrics *observability.Metrics) *SnapshotCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &SnapshotCache{client: client, repo: repo, ttl: ttl, logger: logger, metrics: metrics}
}

// Get returns the user's snapshot, rebuilding and storing it on a miss.
// A cache outage degrades to a direct repository read, never to allow.
func (c *SnapshotCache) Get(ctx context.Context, userID string) (Snapshot, error) {
	if c.client == nil {
		c.metrics.ObserveSnapshotLookup("bypass")
		return c.build(ctx, userID, false)
	}

	payload, err := c.client.Get(ctx, SnapshotKey(userID)).Bytes()
	if err == nil {
		var snap Snapshot
		if err := json.Unmarshal(payload, &snap); err == nil {
			c.metrics.ObserveSnapshotLookup("hit")
			return snap, nil
		}
		// Unreadable entry: treat as a miss and rebuild over it.
		c.logger.Warn("authz: corrupt snapshot entry", slog.String("user_id", userID))
	} else if !errors.Is(err, redis.Nil) {
		c.logger.Warn("authz: snapshot cache read", slog.Any("error", err))
		c.metrics.ObserveSnapshotLookup("bypass")
		return c.build(ctx, userID, false)
	}

	c.metrics.ObserveSnapshotLookup("miss")
	return c.rebuild(ctx, userID)
}

// Refresh forces a rebuild from the repository and stores the result.
func (c *SnapshotCache) Refresh(ctx context.Context, userID string) (Snapshot, error) {
	return c.rebuild(ctx, userID)
}

// Invalidate drops the user's snapshot. Callers mutating role assignments
// must invoke this after the mutation is committed; until then (or until the
// TTL expires) authorization may legitimately serve the previous state.
func (c *SnapshotCache) Invalidate(ctx context.Context, userID string) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, SnapshotKey(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// rebuild fetches assignments once per user across concurrent callers and
// stores the resulting snapshot.
func (c *SnapshotCache) rebuild(ctx context.Context, userID string) (Snapshot, error) {
	result, err, _ := c.group.Do(userID, func() (interface{}, error) {
		return c.build(ctx, userID, true)
	})
	if err != nil {
		return Snapshot{}, err
	}
	return result.(Snapshot), nil
}

func (c *SnapshotCache) build(ctx context.Context, userID string, store bool) (Snapshot, error) {
	start := time.Now()
	assignments, err := c.repo.ActiveAssignments(ctx, userID)
	c.metrics.ObserveRoleFetch(time.Since(start))
	if err != nil {
		return Snapshot{}, err
	}

	snap := BuildSnapshot(userID, assignments)
	if store && c.client != nil {
		payload, err := json.Marshal(snap)
		if err != nil {
			return Snapshot{}, err
		}
		if err := c.client.Set(ctx, SnapshotKey(userID), payload, c.ttl).Err(); err != nil {
			// Population failure is not an authorization failure.
			c.logger.Warn("authz: snapshot cache write", slog.Any("error", err))
		}
	}
	return snap, nil
}
