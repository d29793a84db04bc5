package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/shared"
	_ "github.com/aulanet/aulanet/internal/testing/guard"
)

type mockRepo struct {
	assignments map[int64]authz.Assignment
	nextID      int64
	insertErr   error
}

func newMockRepo() *mockRepo {
	return &mockRepo{assignments: make(map[int64]authz.Assignment), nextID: 1}
}

func (m *mockRepo) ListByUser(ctx context.Context, userID string) ([]authz.Assignment, error) {
	var out []authz.Assignment
	for _, a := range m.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	authz.SortAssignments(out)
	return out, nil
}

func (m *mockRepo) Get(ctx context.Context, id int64) (authz.Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return authz.Assignment{}, shared.ErrNotFound
	}
	return a, nil
}

func (m *mockRepo) Insert(ctx context.Context, a authz.Assignment) (authz.Assignment, error) {
	if m.insertErr != nil {
		return authz.Assignment{}, m.insertErr
	}
	a.ID = m.nextID
	m.nextID++
	a.IsActive = true
	a.AssignedAt = time.Now().UTC()
	m.assignments[a.ID] = a
	return a, nil
}

func (m *mockRepo) SetActive(ctx context.Context, id int64, active bool) (authz.Assignment, error) {
	a, ok := m.assignments[id]
	if !ok {
		return authz.Assignment{}, shared.ErrNotFound
	}
	a.IsActive = active
	if active {
		a.RevokedAt = nil
	} else {
		now := time.Now().UTC()
		a.RevokedAt = &now
	}
	m.assignments[id] = a
	return a, nil
}

type recordingInvalidator struct {
	invalidated []string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, userID string) error {
	r.invalidated = append(r.invalidated, userID)
	return nil
}

type recordingEnqueuer struct {
	enqueued []string
}

func (r *recordingEnqueuer) EnqueueSnapshotRefresh(ctx context.Context, userID string) error {
	r.enqueued = append(r.enqueued, userID)
	return nil
}

func ptr(v int64) *int64 { return &v }

func TestGrantCreatesAssignmentAndInvalidates(t *testing.T) {
	repo := newMockRepo()
	inv := &recordingInvalidator{}
	enq := &recordingEnqueuer{}
	svc := NewService(repo, inv, nil, enq, nil, nil)

	a, err := svc.Grant(context.Background(), GrantInput{
		UserID:     "u1",
		Kind:       "teacher",
		SchoolID:   ptr(7),
		AssignedBy: "admin-1",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, authz.RoleTeacher, a.Kind)
	assert.True(t, a.IsActive)
	assert.Equal(t, []string{"u1"}, inv.invalidated)
	assert.Equal(t, []string{"u1"}, enq.enqueued)
}

func TestGrantRejectsUnknownKind(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil, nil, nil)

	_, err := svc.Grant(context.Background(), GrantInput{
		UserID: "u1",
		Kind:   "principal",
	}, "")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestGrantScopeValidation(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil, nil, nil)
	ctx := context.Background()

	t.Run("teacher requires a school", func(t *testing.T) {
		_, err := svc.Grant(ctx, GrantInput{UserID: "u1", Kind: "teacher"}, "")
		assert.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("community manager requires a community", func(t *testing.T) {
		_, err := svc.Grant(ctx, GrantInput{UserID: "u1", Kind: "community_manager", SchoolID: ptr(7)}, "")
		assert.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("at most one dimension", func(t *testing.T) {
		_, err := svc.Grant(ctx, GrantInput{
			UserID:   "u1",
			Kind:     "admin",
			SchoolID: ptr(7), CommunityID: ptr(4),
		}, "")
		assert.ErrorIs(t, err, ErrInvalidGrant)
	})

	t.Run("admin may be global", func(t *testing.T) {
		_, err := svc.Grant(ctx, GrantInput{UserID: "u1", Kind: "admin"}, "")
		assert.NoError(t, err)
	})

	t.Run("admin may be school scoped", func(t *testing.T) {
		_, err := svc.Grant(ctx, GrantInput{UserID: "u1", Kind: "admin", SchoolID: ptr(7)}, "")
		assert.NoError(t, err)
	})
}

func TestRevokeAndReactivate(t *testing.T) {
	repo := newMockRepo()
	inv := &recordingInvalidator{}
	svc := NewService(repo, inv, nil, nil, nil, nil)
	ctx := context.Background()

	a, err := svc.Grant(ctx, GrantInput{UserID: "u1", Kind: "teacher", SchoolID: ptr(7)}, "")
	require.NoError(t, err)

	revoked, err := svc.Revoke(ctx, a.ID, "admin-1")
	require.NoError(t, err)
	assert.False(t, revoked.IsActive)
	assert.NotNil(t, revoked.RevokedAt)

	restored, err := svc.Reactivate(ctx, a.ID, "admin-1")
	require.NoError(t, err)
	assert.True(t, restored.IsActive)
	assert.Nil(t, restored.RevokedAt)

	// Grant, revoke and reactivate each drop the snapshot.
	assert.Equal(t, []string{"u1", "u1", "u1"}, inv.invalidated)
}

func TestRevokeUnknownAssignment(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil, nil, nil)

	_, err := svc.Revoke(context.Background(), 42, "admin-1")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestMultipleRolesPerUser(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil, nil, nil, nil)
	ctx := context.Background()

	_, err := svc.Grant(ctx, GrantInput{UserID: "u1", Kind: "teacher", SchoolID: ptr(7)}, "")
	require.NoError(t, err)
	_, err = svc.Grant(ctx, GrantInput{UserID: "u1", Kind: "community_leader", CommunityID: ptr(4)}, "")
	require.NoError(t, err)

	assignments, err := svc.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	// Priority ordering: community_leader outranks teacher.
	assert.Equal(t, authz.RoleCommunityLeader, assignments[0].Kind)
	assert.Equal(t, authz.RoleTeacher, assignments[1].Kind)
}
