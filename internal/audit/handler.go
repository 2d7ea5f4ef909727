package audit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/transport"
)

const maxListLimit = 500

type Lister interface {
	List(ctx context.Context, filter Filter) ([]*Entry, error)
}

type EntriesResponse struct {
	Entries []*Entry `json:"entries"`
}

type Handler struct {
	*transport.BaseHandler
	Service Lister
}

func NewHandler(baseHandler *transport.BaseHandler, service Lister) *Handler {
	return &Handler{BaseHandler: baseHandler, Service: service}
}

// ListEntries handles GET /audit-logs. Routing restricts it to administrators
// with full PHI access.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		UserID:       q.Get("user_id"),
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		ResourceID:   q.Get("resource_id"),
		Limit:        100,
	}

	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxListLimit {
			h.WriteAppError(w, internal.NewValidationFieldError("limit", "limit must be between 1 and 500", internal.ErrCodeValidationFailed))
			return
		}
		filter.Limit = n
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			h.WriteAppError(w, internal.NewValidationFieldError("since", "since must be an RFC3339 timestamp", internal.ErrCodeInvalidDate))
			return
		}
		filter.Since = since
	}

	entries, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, EntriesResponse{Entries: entries})
}
