package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/observability"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSnapshotRefresh rebuilds one user's role snapshot.
	TaskTypeSnapshotRefresh = "authz:snapshot:refresh"
	// TaskTypeSnapshotSweep drops every cached role snapshot, bounding how
	// long a forgotten invalidation can serve stale permissions.
	TaskTypeSnapshotSweep = "authz:snapshot:sweep"
)

// SnapshotRefreshPayload identifies the user whose snapshot to rebuild.
type SnapshotRefreshPayload struct {
	UserID string `json:"user_id"`
}

// NewSnapshotRefreshTask constructs an Asynq task.
func NewSnapshotRefreshTask(payload SnapshotRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSnapshotRefresh, data), nil
}

// NewSnapshotSweepTask constructs the sweep task; it carries no payload.
func NewSnapshotSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSnapshotSweep, nil)
}

// NewSnapshotRefreshHandler processes TaskTypeSnapshotRefresh tasks.
func NewSnapshotRefreshHandler(cache *authz.SnapshotCache, logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SnapshotRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.UserID == "" {
			return asynq.SkipRetry
		}
		if _, err := cache.Refresh(ctx, payload.UserID); err != nil {
			metrics.ObserveJob(TaskTypeSnapshotRefresh, "error")
			return err
		}
		metrics.ObserveJob(TaskTypeSnapshotRefresh, "ok")
		logger.Info("snapshot refreshed", slog.String("user_id", payload.UserID))
		return nil
	}
}

// NewSnapshotSweepHandler processes TaskTypeSnapshotSweep tasks by scanning
// and deleting every snapshot key. Swept users rebuild lazily on their next
// authorization check.
func NewSnapshotSweepHandler(client *redis.Client, logger *slog.Logger, metrics *observability.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var cursor uint64
		swept := 0
		for {
			keys, next, err := client.Scan(ctx, cursor, authz.SnapshotKey("*"), 100).Result()
			if err != nil {
				metrics.ObserveJob(TaskTypeSnapshotSweep, "error")
				return err
			}
			if len(keys) > 0 {
				if err := client.Del(ctx, keys...).Err(); err != nil {
					metrics.ObserveJob(TaskTypeSnapshotSweep, "error")
					return err
				}
				swept += len(keys)
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
		metrics.ObserveJob(TaskTypeSnapshotSweep, "ok")
		logger.Info("snapshot sweep complete", slog.Int("swept", swept))
		return nil
	}
}
