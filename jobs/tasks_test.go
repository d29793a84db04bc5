package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/aulanet/internal/authz"
	_ "github.com/aulanet/aulanet/internal/testing/guard"
)

type staticRepo struct {
	assignments []authz.Assignment
}

func (r staticRepo) ActiveAssignments(ctx context.Context, userID string) ([]authz.Assignment, error) {
	return r.assignments, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshotRefreshHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	scope := authz.SchoolScope(7)
	cache := authz.NewSnapshotCache(client, staticRepo{assignments: []authz.Assignment{
		{ID: 1, UserID: "u1", Kind: authz.RoleTeacher, Scope: scope, IsActive: true},
	}}, 0, nil, nil)

	handler := NewSnapshotRefreshHandler(cache, discardLogger(), nil)

	task, err := NewSnapshotRefreshTask(SnapshotRefreshPayload{UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	assert.True(t, mr.Exists(authz.SnapshotKey("u1")))
}

func TestSnapshotRefreshHandlerBadPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := authz.NewSnapshotCache(client, staticRepo{}, 0, nil, nil)
	handler := NewSnapshotRefreshHandler(cache, discardLogger(), nil)

	err := handler(context.Background(), asynq.NewTask(TaskTypeSnapshotRefresh, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = handler(context.Background(), asynq.NewTask(TaskTypeSnapshotRefresh, []byte(`{"user_id":""}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSnapshotSweepHandler(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, mr.Set(authz.SnapshotKey("u1"), "{}"))
	require.NoError(t, mr.Set(authz.SnapshotKey("u2"), "{}"))
	require.NoError(t, mr.Set("aulanet:session:s1", "{}"))

	handler := NewSnapshotSweepHandler(client, discardLogger(), nil)
	require.NoError(t, handler(context.Background(), NewSnapshotSweepTask()))

	assert.False(t, mr.Exists(authz.SnapshotKey("u1")))
	assert.False(t, mr.Exists(authz.SnapshotKey("u2")))
	// Only snapshot keys are swept.
	assert.True(t, mr.Exists("aulanet:session:s1"))
}
