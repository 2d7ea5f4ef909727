package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/audit"
	"github.com/frahmantamala/client-portal/internal/project"
	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
)

const (
	UpcomingLimit = 3
	ActivityLimit = 10
)

type ProjectSummarizer interface {
	Summary(now time.Time, upcoming int) (map[string]int64, []*project.Project, error)
}

type UnreadCounter interface {
	UnreadTotal(actor *session.Session) (int64, error)
}

type ActivityLister interface {
	List(ctx context.Context, filter audit.Filter) ([]*audit.Entry, error)
}

type Deadline struct {
	ProjectID int64  `json:"project_id"`
	Name      string `json:"name"`
	Client    string `json:"client"`
	Status    string `json:"status"`
	Deadline  string `json:"deadline"`
}

type Summary struct {
	ProjectCounts  map[string]int64 `json:"project_counts"`
	Upcoming       []Deadline       `json:"upcoming_deadlines"`
	UnreadMessages int64            `json:"unread_messages"`
	RecentActivity []*audit.Entry   `json:"recent_activity,omitempty"`
}

type Service struct {
	projects ProjectSummarizer
	messages UnreadCounter
	activity ActivityLister
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(projects ProjectSummarizer, messages UnreadCounter, activity ActivityLister, logger *slog.Logger) *Service {
	return &Service{
		projects: projects,
		messages: messages,
		activity: activity,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the time source, used by tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Summary builds the dashboard. Audit activity is only included for sessions
// that may see PHI.
func (s *Service) Summary(ctx context.Context, actor *session.Session) (*Summary, error) {
	if !actor.HasPermission(session.PermViewDashboard) {
		return nil, internal.ErrPermissionDenied
	}

	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counts, next, err := s.projects.Summary(today, UpcomingLimit)
	if err != nil {
		return nil, err
	}

	out := &Summary{
		ProjectCounts: counts,
		Upcoming:      make([]Deadline, 0, len(next)),
	}
	for _, p := range next {
		out.Upcoming = append(out.Upcoming, Deadline{
			ProjectID: p.ID,
			Name:      p.Name,
			Client:    p.Client,
			Status:    p.Status,
			Deadline:  p.Deadline.Format(time.DateOnly),
		})
	}

	if out.UnreadMessages, err = s.messages.UnreadTotal(actor); err != nil {
		return nil, err
	}

	if actor.CanAccessPHI() {
		entries, err := s.activity.List(ctx, audit.Filter{Limit: ActivityLimit})
		if err != nil {
			s.logger.WarnContext(ctx, "dashboard activity unavailable", "error", err)
		} else {
			out.RecentActivity = entries
		}
	}
	return out, nil
}

type Handler struct {
	*transport.BaseHandler
	Service *Service
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service) *Handler {
	return &Handler{BaseHandler: baseHandler, Service: service}
}

func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	actor := session.MustFromContext(r.Context())

	summary, err := h.Service.Summary(r.Context(), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, summary)
}
