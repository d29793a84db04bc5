package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aulanet/aulanet/internal/auth"
	"github.com/aulanet/aulanet/internal/authz"
	"github.com/aulanet/aulanet/internal/observability"
	"github.com/aulanet/aulanet/internal/roles"
	"github.com/aulanet/aulanet/internal/shared"
	"github.com/aulanet/aulanet/internal/users"
	"github.com/aulanet/aulanet/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	AuthHandler    *auth.Handler
	AuthzHandler   *authz.Handler
	RolesHandler   *roles.Handler
	UsersHandler   *users.Handler
	JobHandler     *jobs.Handler
	Authorize      authz.Middleware
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router for the API surface.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	r.Route("/api", func(r chi.Router) {
		if params.AuthzHandler != nil {
			r.Route("/authz", params.AuthzHandler.MountRoutes)
		}
		if params.RolesHandler != nil {
			r.Route("/roles", func(r chi.Router) {
				r.Use(params.Authorize.Require(authz.ActionManageRoles, authz.ResourceFromQuery))
				params.RolesHandler.MountRoutes(r)
			})
		}
		r.Route("/users", func(r chi.Router) {
			if params.UsersHandler != nil {
				r.Group(func(r chi.Router) {
					r.Use(params.Authorize.Require(authz.ActionManageUsers, authz.ResourceFromQuery))
					params.UsersHandler.MountRoutes(r)
				})
			}
			if params.RolesHandler != nil {
				r.Group(func(r chi.Router) {
					r.Use(params.Authorize.Require(authz.ActionManageRoles, authz.ResourceFromQuery))
					params.RolesHandler.MountUserRoutes(r)
				})
			}
		})
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
