package authz

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aulanet/aulanet/internal/platform/httpx"
	"github.com/aulanet/aulanet/internal/shared"
)

// Handler exposes decision introspection endpoints.
type Handler struct {
	logger    *slog.Logger
	evaluator *Evaluator
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, evaluator *Evaluator) *Handler {
	return &Handler{logger: logger, evaluator: evaluator}
}

// MountRoutes registers authorization routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
	r.Get("/actions", h.actions)
}

type checkRequest struct {
	Action   string   `json:"action"`
	Resource Resource `json:"resource"`
}

type checkResponse struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	decision, err := h.evaluator.Authorize(r.Context(), userID, Action(req.Action), req.Resource)
	if err != nil {
		h.logger.Error("authz check", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Role Store Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, checkResponse{Allow: decision.Allow, Reason: string(decision.Reason)})
}

type actionsResponse struct {
	Actions []Action `json:"actions"`
}

func (h *Handler) actions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(r)
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	resource := Resource{
		Type:  r.URL.Query().Get("type"),
		ID:    r.URL.Query().Get("id"),
		Scope: ScopeFromQuery(r),
	}
	actions, err := h.evaluator.AllowedActions(r.Context(), userID, resource)
	if err != nil {
		h.logger.Error("authz actions", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Role Store Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, actionsResponse{Actions: actions})
}

// ResourceFromQuery derives the target resource from query parameters. It is
// the default ResourceFunc for routes gated by Middleware.Require.
func ResourceFromQuery(r *http.Request) Resource {
	return Resource{
		Type:  r.URL.Query().Get("type"),
		ID:    r.URL.Query().Get("id"),
		Scope: ScopeFromQuery(r),
	}
}

// ScopeFromQuery reads scope dimensions from query parameters. Unparseable
// values are treated as absent, which fails closed at evaluation time.
func ScopeFromQuery(r *http.Request) Scope {
	return Scope{
		SchoolID:     queryInt64(r, "school_id"),
		CommunityID:  queryInt64(r, "community_id"),
		NetworkID:    queryInt64(r, "network_id"),
		GenerationID: queryInt64(r, "generation_id"),
	}
}

func queryInt64(r *http.Request, name string) *int64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &v
}

func currentUser(r *http.Request) (string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		return "", false
	}
	return sess.User(), true
}
