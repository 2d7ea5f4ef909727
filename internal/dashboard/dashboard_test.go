package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/audit"
	"github.com/frahmantamala/client-portal/internal/dashboard"
	"github.com/frahmantamala/client-portal/internal/project"
	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/frahmantamala/client-portal/internal/transport"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDashboard(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dashboard Suite")
}

type fakeProjects struct {
	from time.Time
}

func (f *fakeProjects) Summary(now time.Time, upcoming int) (map[string]int64, []*project.Project, error) {
	f.from = now
	return map[string]int64{project.StatusInProgress: 2, project.StatusCompleted: 1},
		[]*project.Project{{ID: 4, Name: "Website Redesign", Client: "Acme", Status: project.StatusInProgress, Deadline: time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)}},
		nil
}

type fakeUnread struct{ n int64 }

func (f fakeUnread) UnreadTotal(*session.Session) (int64, error) { return f.n, nil }

type fakeActivity struct {
	err   error
	calls int
}

func (f *fakeActivity) List(ctx context.Context, filter audit.Filter) ([]*audit.Entry, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []*audit.Entry{{ID: "a1", Action: audit.ActionPHIView}}, nil
}

var _ = Describe("Dashboard", func() {
	var (
		projects *fakeProjects
		activity *fakeActivity
		service  *dashboard.Service
	)

	BeforeEach(func() {
		projects = &fakeProjects{}
		activity = &fakeActivity{}
		slogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = dashboard.NewService(projects, fakeUnread{n: 1}, activity, slogger).
			WithClock(func() time.Time { return time.Date(2024, 3, 14, 16, 30, 0, 0, time.UTC) })
	})

	It("summarizes projects from the start of today", func() {
		summary, err := service.Summary(context.Background(), session.Default())
		Expect(err).NotTo(HaveOccurred())
		Expect(projects.from).To(Equal(time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)))
		Expect(summary.ProjectCounts).To(HaveKeyWithValue(project.StatusInProgress, int64(2)))
		Expect(summary.Upcoming).To(HaveLen(1))
		Expect(summary.Upcoming[0].Deadline).To(Equal("2024-04-15"))
		Expect(summary.UnreadMessages).To(Equal(int64(1)))
		Expect(summary.RecentActivity).To(HaveLen(1))
	})

	It("omits audit activity for sessions without PHI access", func() {
		s := session.New("2", "Client", "", "client", []string{session.PermViewDashboard}, session.AccessLimited)
		summary, err := service.Summary(context.Background(), s)
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.RecentActivity).To(BeNil())
		Expect(activity.calls).To(BeZero())
	})

	It("still renders when activity cannot be loaded", func() {
		activity.err = errors.New("db down")
		summary, err := service.Summary(context.Background(), session.Default())
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.RecentActivity).To(BeNil())
	})

	It("requires view_dashboard", func() {
		s := session.New("2", "Client", "", "client", nil, session.AccessNone)
		_, err := service.Summary(context.Background(), s)
		Expect(errors.Is(err, internal.ErrPermissionDenied)).To(BeTrue())
	})

	It("serves the summary over HTTP", func() {
		h := dashboard.NewHandler(transport.NewBaseHandler(nil), service)
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req = req.WithContext(session.WithSession(req.Context(), session.Default()))
		w := httptest.NewRecorder()

		h.GetDashboard(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body).To(HaveKey("upcoming_deadlines"))
		Expect(body).To(HaveKey("recent_activity"))
	})
})
