package messaging

import (
	"net/http"

	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
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

func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	conversations, err := h.Service.ListConversations(actor, r.URL.Query().Get("q"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, ConversationsResponse{Conversations: conversations})
}

func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	var dto StartConversationDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	c, err := h.Service.StartConversation(actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, ConversationSummary{ID: c.ID, With: c.With})
}

func (h *Handler) GetThread(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	thread, err := h.Service.GetThread(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, thread)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	var dto SendMessageDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	msg, err := h.Service.Send(actor, id, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, msg)
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return
	}

	n, err := h.Service.MarkRead(actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, MarkReadResponse{Marked: n})
}
