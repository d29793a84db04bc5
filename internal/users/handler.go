package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aulanet/aulanet/internal/platform/httpx"
	"github.com/aulanet/aulanet/internal/shared"
)

// Handler manages user directory endpoints. The router mounts these behind
// the manage_users authorization middleware.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/", h.createUser)
	r.Get("/{userID}", h.getUser)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	users, pagination, err := h.service.ListUsers(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error("list users", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"users":      users,
		"pagination": pagination,
	})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, httpx.ErrNotFound)
			return
		}
		h.logger.Error("get user", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in NewUserInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	user, err := h.service.CreateUser(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrDuplicate):
			httpx.RespondError(w, httpx.ErrDuplicate)
		default:
			h.logger.Error("create user", slog.Any("error", err))
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}
