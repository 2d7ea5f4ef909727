package phi

import (
	"net/http"

	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
	"github.com/go-chi/chi"
)

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	records, err := h.Service.List(r.Context(), actor, r.URL.Query().Get("mrn"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RecordsResponse{Records: records})
}

func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	var dto CreateRecordDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	view, err := h.Service.Create(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, view)
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	view, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	h.WriteJSON(w, http.StatusOK, view)
}
