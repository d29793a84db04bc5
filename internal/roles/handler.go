package roles

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aulanet/aulanet/internal/platform/httpx"
	"github.com/aulanet/aulanet/internal/shared"
)

// Handler exposes role assignment management endpoints. Routes are mounted
// behind the manage_roles authorization middleware by the router.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers role management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/kinds", h.listKinds)
	r.Post("/", h.grant)
	r.Post("/{id}/revoke", h.revoke)
	r.Post("/{id}/reactivate", h.reactivate)
}

// MountUserRoutes registers the per-user assignment listing.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/{userID}/roles", h.listByUser)
}

func (h *Handler) listKinds(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"kinds": Kinds()})
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var in GrantInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		in.AssignedBy = sess.User()
	}

	assignment, err := h.service.Grant(r.Context(), in, r.Header.Get("Idempotency-Key"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidGrant):
			httpx.Problem(w, http.StatusBadRequest, "Invalid Grant", err.Error())
		case errors.Is(err, shared.ErrIdempotencyConflict):
			httpx.Problem(w, http.StatusConflict, "Duplicate Request", "")
		case errors.Is(err, shared.ErrNotFound):
			httpx.RespondError(w, httpx.ErrNotFound)
		default:
			h.logger.Error("grant role", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, assignment)
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	actorID := ""
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		actorID = sess.User()
	}

	var assignment any
	if active {
		assignment, err = h.service.Reactivate(r.Context(), id, actorID)
	} else {
		assignment, err = h.service.Revoke(r.Context(), id, actorID)
	}
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("update assignment", slog.Any("error", err), slog.Int64("id", id))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, assignment)
}

func (h *Handler) listByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	assignments, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list assignments", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"assignments": assignments})
}
