package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aulanet/aulanet/internal/shared"
)

func requestWithUser(userID string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if userID == "" {
		return r
	}
	sess := &shared.Session{ID: "sess-1"}
	sess.SetUser(userID)
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestRequireAllowsAuthorizedUser(t *testing.T) {
	snap := snapshotOf(active(1, RoleTeacher, SchoolScope(7)))
	mw := Middleware{Evaluator: NewEvaluator(stubSnapshots{snap: snap}, nil, nil)}

	called := false
	handler := mw.Require(ActionManageCourses, func(r *http.Request) Resource {
		return Resource{Scope: SchoolScope(7)}
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser("user-1"))
	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireDeniesWithoutSession(t *testing.T) {
	mw := Middleware{Evaluator: NewEvaluator(stubSnapshots{}, nil, nil)}

	handler := mw.Require(ActionViewCourse, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser(""))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireDeniesOnScopeMismatch(t *testing.T) {
	snap := snapshotOf(active(1, RoleTeacher, SchoolScope(7)))
	mw := Middleware{Evaluator: NewEvaluator(stubSnapshots{snap: snap}, nil, nil)}

	handler := mw.Require(ActionManageCourses, func(r *http.Request) Resource {
		return Resource{Scope: SchoolScope(9)}
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser("user-1"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireStoreFailureIs503(t *testing.T) {
	mw := Middleware{Evaluator: NewEvaluator(stubSnapshots{err: ErrStoreUnavailable}, nil, nil)}

	handler := mw.Require(ActionViewCourse, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestWithUser("user-1"))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
