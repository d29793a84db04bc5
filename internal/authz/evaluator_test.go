package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSnapshots struct {
	snap Snapshot
	err  error
}

func (s stubSnapshots) Get(ctx context.Context, userID string) (Snapshot, error) {
	return s.snap, s.err
}

func snapshotOf(assignments ...Assignment) Snapshot {
	return BuildSnapshot("user-1", assignments)
}

func active(id int64, kind RoleKind, scope Scope) Assignment {
	return Assignment{ID: id, UserID: "user-1", Kind: kind, Scope: scope, IsActive: true}
}

func TestEvaluateGlobalAdminOverridesEverything(t *testing.T) {
	snap := snapshotOf(active(1, RoleAdmin, GlobalScope()))

	for _, action := range AllActions {
		d := Evaluate(snap, action, Resource{Scope: SchoolScope(42)})
		assert.True(t, d.Allow, "action %s", action)
		assert.Equal(t, ReasonGlobalAdmin, d.Reason)
	}

	// Even an unknown action is allowed for the unscoped admin.
	d := Evaluate(snap, Action("frobnicate"), Resource{})
	assert.True(t, d.Allow)
	assert.Equal(t, ReasonGlobalAdmin, d.Reason)
}

func TestEvaluateScopedAdminIsNotGlobal(t *testing.T) {
	snap := snapshotOf(active(1, RoleAdmin, SchoolScope(7)))

	d := Evaluate(snap, ActionDeleteCourse, Resource{Scope: SchoolScope(7)})
	assert.True(t, d.Allow)
	assert.Equal(t, ReasonScopedRole, d.Reason)

	d = Evaluate(snap, ActionDeleteCourse, Resource{Scope: SchoolScope(9)})
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonScopeMismatch, d.Reason)
}

func TestEvaluateDuplicateAdminRows(t *testing.T) {
	// A user can hold a scoped and a global admin row at once; list semantics
	// mean the global one wins regardless of row order.
	snap := snapshotOf(
		active(1, RoleAdmin, SchoolScope(7)),
		active(2, RoleAdmin, GlobalScope()),
	)

	d := Evaluate(snap, ActionDeleteCourse, Resource{Scope: SchoolScope(9)})
	assert.True(t, d.Allow)
	assert.Equal(t, ReasonGlobalAdmin, d.Reason)
}

func TestEvaluateUnknownAction(t *testing.T) {
	snap := snapshotOf(active(1, RoleTeacher, SchoolScope(7)))

	d := Evaluate(snap, Action("frobnicate"), Resource{Scope: SchoolScope(7)})
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonUnknownAction, d.Reason)
}

func TestEvaluateDenyReasons(t *testing.T) {
	t.Run("no roles", func(t *testing.T) {
		d := Evaluate(snapshotOf(), ActionViewCourse, Resource{Scope: SchoolScope(7)})
		assert.False(t, d.Allow)
		assert.Equal(t, ReasonNoRoles, d.Reason)
	})

	t.Run("revoked assignments count as no roles", func(t *testing.T) {
		revoked := active(1, RoleTeacher, SchoolScope(7))
		revoked.IsActive = false
		d := Evaluate(snapshotOf(revoked), ActionViewCourse, Resource{Scope: SchoolScope(7)})
		assert.False(t, d.Allow)
		assert.Equal(t, ReasonNoRoles, d.Reason)
	})

	t.Run("no capability", func(t *testing.T) {
		snap := snapshotOf(active(1, RoleStudent, SchoolScope(7)))
		d := Evaluate(snap, ActionDeleteCourse, Resource{Scope: SchoolScope(7)})
		assert.False(t, d.Allow)
		assert.Equal(t, ReasonNoCapability, d.Reason)
	})

	t.Run("scope mismatch", func(t *testing.T) {
		snap := snapshotOf(active(1, RoleTeacher, SchoolScope(7)))
		d := Evaluate(snap, ActionManageCourses, Resource{Scope: SchoolScope(9)})
		assert.False(t, d.Allow)
		assert.Equal(t, ReasonScopeMismatch, d.Reason)
	})
}

func TestEvaluateAssignmentsCombineWithOR(t *testing.T) {
	// Teacher at school 7, leadership at school 9. Either grant alone decides.
	snap := snapshotOf(
		active(1, RoleTeacher, SchoolScope(7)),
		active(2, RoleSchoolLeadership, SchoolScope(9)),
	)

	d := Evaluate(snap, ActionManageCourses, Resource{Scope: SchoolScope(7)})
	assert.True(t, d.Allow)

	d = Evaluate(snap, ActionDeleteCourse, Resource{Scope: SchoolScope(9)})
	assert.True(t, d.Allow)

	// delete_course needs leadership, which is scoped to 9, not 7.
	d = Evaluate(snap, ActionDeleteCourse, Resource{Scope: SchoolScope(7)})
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonScopeMismatch, d.Reason)
}

func TestEvaluateCommunityManagerCapabilities(t *testing.T) {
	snap := snapshotOf(active(1, RoleCommunityManager, CommunityScope(4)))

	d := Evaluate(snap, ActionManageNews, Resource{Scope: CommunityScope(4)})
	assert.True(t, d.Allow)

	d = Evaluate(snap, ActionManageEvents, Resource{Scope: CommunityScope(4)})
	assert.True(t, d.Allow)

	// Community managers run news and events, nothing else.
	d = Evaluate(snap, ActionManageMembers, Resource{Scope: CommunityScope(4)})
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonNoCapability, d.Reason)
}

func TestEvaluateConsultantIsScopeChecked(t *testing.T) {
	snap := snapshotOf(active(1, RoleConsultant, GlobalScope()))

	d := Evaluate(snap, ActionViewReports, Resource{Scope: SchoolScope(7)})
	assert.True(t, d.Allow)
	assert.Equal(t, ReasonScopedRole, d.Reason)

	// No delete capability, global scope or not.
	d = Evaluate(snap, ActionDeleteCourse, Resource{Scope: SchoolScope(7)})
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonNoCapability, d.Reason)
}

func TestEvaluateAdminRevocationNarrowsToTeacher(t *testing.T) {
	admin := active(1, RoleAdmin, GlobalScope())
	teacher := active(2, RoleTeacher, SchoolScope(7))

	snap := snapshotOf(admin, teacher)
	d := Evaluate(snap, ActionDeleteCourse, Resource{Scope: SchoolScope(7)})
	assert.True(t, d.Allow)
	assert.Equal(t, ReasonGlobalAdmin, d.Reason)

	// Drop the admin grant; only teacher capabilities remain.
	snap = snapshotOf(teacher)
	d = Evaluate(snap, ActionDeleteCourse, Resource{Scope: SchoolScope(7)})
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonNoCapability, d.Reason)

	d = Evaluate(snap, ActionViewCourse, Resource{Scope: SchoolScope(7)})
	assert.True(t, d.Allow)
	assert.Equal(t, ReasonScopedRole, d.Reason)
}

func TestAuthorizeStoreFailureDeniesClosed(t *testing.T) {
	boom := errors.New("redis down")
	ev := NewEvaluator(stubSnapshots{err: boom}, nil, nil)

	d, err := ev.Authorize(context.Background(), "user-1", ActionViewCourse, Resource{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, d.Allow)
	assert.Equal(t, ReasonStoreUnavailable, d.Reason)
}

func TestAllowedActions(t *testing.T) {
	snap := snapshotOf(active(1, RoleTeacher, SchoolScope(7)))
	ev := NewEvaluator(stubSnapshots{snap: snap}, nil, nil)

	actions, err := ev.AllowedActions(context.Background(), "user-1", Resource{Scope: SchoolScope(7)})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Action{ActionViewCourse, ActionManageCourses}, actions)

	actions, err = ev.AllowedActions(context.Background(), "user-1", Resource{Scope: SchoolScope(9)})
	require.NoError(t, err)
	assert.Empty(t, actions)
}
