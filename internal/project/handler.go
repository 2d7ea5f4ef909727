package project

import (
	"net/http"

	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
)

type ServiceAPI interface {
	List(actor *session.Session, filter ListFilter) ([]*Project, error)
	Get(actor *session.Session, id int64) (*Project, error)
	Create(actor *session.Session, dto ProjectDTO) (*Project, error)
	Update(actor *session.Session, id int64, dto ProjectDTO) (*Project, error)
	Delete(actor *session.Session, id int64) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	filter := ListFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("q"),
	}

	projects, err := h.Service.List(actor, filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	resp := ProjectsResponse{Projects: make([]ProjectResponse, 0, len(projects))}
	for _, p := range projects {
		resp.Projects = append(resp.Projects, p.ToResponse())
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	p, err := h.Service.Get(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p.ToResponse())
}

func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	var dto ProjectDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	p, err := h.Service.Create(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CreateProject: project created", "project_id", p.ID, "user_id", actor.UserID)
	h.WriteJSON(w, http.StatusCreated, p.ToResponse())
}

func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto ProjectDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	p, err := h.Service.Update(actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, p.ToResponse())
}

func (h *Handler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	if err := h.Service.Delete(actor, id); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
