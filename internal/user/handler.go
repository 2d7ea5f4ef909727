package user

import (
	"context"
	"net/http"

	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
)

type ServiceAPI interface {
	GetByID(ctx context.Context, actor *session.Session, userID int64) (*User, error)
	CreateUser(ctx context.Context, actor *session.Session, dto CreateUserDTO) (*User, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, svc ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     svc,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	s := session.MustFromContext(r.Context())
	h.WriteJSON(w, http.StatusOK, NewMeResponse(s))
}

// GetUser handles GET /users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	u, err := h.Service.GetByID(r.Context(), session.MustFromContext(r.Context()), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// CreateUser handles POST /users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var dto CreateUserDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	u, err := h.Service.CreateUser(r.Context(), session.MustFromContext(r.Context()), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}
