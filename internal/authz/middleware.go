package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aulanet/aulanet/internal/shared"
)

// ResourceFunc derives the target resource from the incoming request, e.g.
// from route parameters or query values.
type ResourceFunc func(r *http.Request) Resource

// Middleware wires authorization checks for HTTP handlers.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
}

// Require allows the request through only when the session user may perform
// action on the resource derived by resourceFn. A nil resourceFn evaluates
// against the global (dimensionless) resource, which only unscoped
// assignments can satisfy.
func (m Middleware) Require(action Action, resourceFn ResourceFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := m.currentUserID(r)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			resource := Resource{}
			if resourceFn != nil {
				resource = resourceFn(r)
			}
			decision, err := m.Evaluator.Authorize(r.Context(), userID, action, resource)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("authz require", slog.Any("error", err))
				}
				// Store failures block the action but are not 403s.
				if errors.Is(err, ErrStoreUnavailable) {
					http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !decision.Allow {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) currentUserID(r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return "", false
	}
	id := strings.TrimSpace(sess.User())
	if id == "" {
		return "", false
	}
	return id, true
}
