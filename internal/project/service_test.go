package project_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	projectDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/project"
	"github.com/frahmantamala/client-portal/internal/core/events"
	"github.com/frahmantamala/client-portal/internal/project"
	"github.com/frahmantamala/client-portal/internal/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestProject(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Project Suite")
}

type MockRepository struct {
	projects   map[int64]*projectDatamodel.Project
	nextID     int64
	shouldFail bool
	failError  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		projects: make(map[int64]*projectDatamodel.Project),
		nextID:   1,
	}
}

func (m *MockRepository) SetShouldFail(shouldFail bool, err error) {
	m.shouldFail = shouldFail
	m.failError = err
}

func (m *MockRepository) List(filter project.ListFilter) ([]*projectDatamodel.Project, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var out []*projectDatamodel.Project
	for _, p := range m.projects {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRepository) GetByID(id int64) (*projectDatamodel.Project, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	p, ok := m.projects[id]
	if !ok {
		return nil, project.ErrNotFound
	}
	return p, nil
}

func (m *MockRepository) Create(p *projectDatamodel.Project) error {
	if m.shouldFail {
		return m.failError
	}
	p.ID = m.nextID
	m.nextID++
	m.projects[p.ID] = p
	return nil
}

func (m *MockRepository) Update(p *projectDatamodel.Project) error {
	if m.shouldFail {
		return m.failError
	}
	m.projects[p.ID] = p
	return nil
}

func (m *MockRepository) Delete(id int64) error {
	if m.shouldFail {
		return m.failError
	}
	if _, ok := m.projects[id]; !ok {
		return project.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *MockRepository) AddFiles(projectID int64, files []projectDatamodel.ProjectFile) error {
	if m.shouldFail {
		return m.failError
	}
	p, ok := m.projects[projectID]
	if !ok {
		return project.ErrNotFound
	}
	p.Files = append(p.Files, files...)
	return nil
}

func (m *MockRepository) CountByStatus() (map[string]int64, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	counts := make(map[string]int64)
	for _, p := range m.projects {
		counts[p.Status]++
	}
	return counts, nil
}

func (m *MockRepository) UpcomingDeadlines(from time.Time, limit int) ([]*projectDatamodel.Project, error) {
	if m.shouldFail {
		return nil, m.failError
	}
	var out []*projectDatamodel.Project
	for _, p := range m.projects {
		if p.Status != project.StatusCompleted && !p.Deadline.Before(from) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Deadline.Before(out[j].Deadline) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeCleaner struct {
	dropped []string
}

func (f *fakeCleaner) Drop(projectID string) bool {
	f.dropped = append(f.dropped, projectID)
	return true
}

func validDTO() project.ProjectDTO {
	return project.ProjectDTO{
		Name:        "Website Redesign",
		Client:      "Acme Health",
		Status:      project.StatusInProgress,
		Deadline:    "2024-04-15",
		Description: "Refresh of the patient portal",
	}
}

var _ = Describe("Project Service", func() {
	var (
		repo    *MockRepository
		cleaner *fakeCleaner
		service *project.Service
		admin   *session.Session
		viewer  *session.Session
	)

	BeforeEach(func() {
		repo = NewMockRepository()
		cleaner = &fakeCleaner{}
		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = project.NewService(repo, cleaner, logger)
		admin = session.Default()
		viewer = session.New("7", "Viewer", "viewer@portal.local", "client",
			[]string{session.PermViewDashboard, session.PermViewProjects}, session.AccessNone)
	})

	Describe("Create", func() {
		It("creates a project with the acting user as creator", func() {
			p, err := service.Create(admin, validDTO())
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ID).To(Equal(int64(1)))
			Expect(p.CreatedBy).To(Equal("1"))
			Expect(p.Deadline.Format(time.DateOnly)).To(Equal("2024-04-15"))
		})

		It("defaults the status to Planning", func() {
			dto := validDTO()
			dto.Status = ""
			p, err := service.Create(admin, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Status).To(Equal(project.StatusPlanning))
		})

		It("rejects unknown statuses", func() {
			dto := validDTO()
			dto.Status = "Archived"
			_, err := service.Create(admin, dto)
			Expect(err).To(HaveOccurred())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("rejects a malformed deadline", func() {
			dto := validDTO()
			dto.Deadline = "15/04/2024"
			_, err := service.Create(admin, dto)
			Expect(err).To(HaveOccurred())
		})

		It("requires the edit permission", func() {
			_, err := service.Create(viewer, validDTO())
			Expect(errors.Is(err, internal.ErrPermissionDenied)).To(BeTrue())
			Expect(repo.projects).To(BeEmpty())
		})

		It("wraps repository failures", func() {
			repo.SetShouldFail(true, errors.New("db down"))
			_, err := service.Create(admin, validDTO())
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeInternal))
		})
	})

	Describe("Get and List", func() {
		BeforeEach(func() {
			_, err := service.Create(admin, validDTO())
			Expect(err).NotTo(HaveOccurred())
		})

		It("lets a viewer read projects", func() {
			projects, err := service.List(viewer, project.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(projects).To(HaveLen(1))

			p, err := service.Get(viewer, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Name).To(Equal("Website Redesign"))
		})

		It("maps a missing project to not found", func() {
			_, err := service.Get(admin, 99)
			Expect(errors.Is(err, internal.ErrProjectNotFound)).To(BeTrue())
		})

		It("denies sessions without view_projects", func() {
			nobody := session.New("9", "Nobody", "", "client", nil, session.AccessNone)
			_, err := service.List(nobody, project.ListFilter{})
			Expect(errors.Is(err, internal.ErrPermissionDenied)).To(BeTrue())
		})
	})

	Describe("Update", func() {
		It("replaces every field", func() {
			_, err := service.Create(admin, validDTO())
			Expect(err).NotTo(HaveOccurred())

			dto := validDTO()
			dto.Name = "Mobile App"
			dto.Status = project.StatusCompleted
			p, err := service.Update(admin, 1, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Name).To(Equal("Mobile App"))
			Expect(p.Status).To(Equal(project.StatusCompleted))
		})

		It("returns not found for an unknown id", func() {
			_, err := service.Update(admin, 42, validDTO())
			Expect(errors.Is(err, internal.ErrProjectNotFound)).To(BeTrue())
		})
	})

	Describe("Delete", func() {
		It("deletes and drops the staged upload batch", func() {
			_, err := service.Create(admin, validDTO())
			Expect(err).NotTo(HaveOccurred())

			Expect(service.Delete(admin, 1)).To(Succeed())
			Expect(repo.projects).To(BeEmpty())
			Expect(cleaner.dropped).To(ConsistOf("1"))
		})

		It("leaves the batch alone when the project does not exist", func() {
			err := service.Delete(admin, 5)
			Expect(errors.Is(err, internal.ErrProjectNotFound)).To(BeTrue())
			Expect(cleaner.dropped).To(BeEmpty())
		})
	})

	Describe("HandleBatchCompleted", func() {
		BeforeEach(func() {
			_, err := service.Create(admin, validDTO())
			Expect(err).NotTo(HaveOccurred())
		})

		It("attaches processed files and skips failed ones", func() {
			ev := events.NewUploadBatchCompletedEvent("1", "1", []events.CompletedFile{
				{ID: "a", Name: "patient_records.pdf", Size: 10, Sensitive: true, Encoded: true, Checksum: "abc"},
				{ID: "b", Name: "broken.txt", Size: 5, Failed: true},
			})

			Expect(service.HandleBatchCompleted(context.Background(), ev)).To(Succeed())

			files := repo.projects[1].Files
			Expect(files).To(HaveLen(1))
			Expect(files[0].Name).To(Equal("patient_records.pdf"))
			Expect(files[0].Encoded).To(BeTrue())
			Expect(files[0].UploadedBy).To(Equal("1"))
		})

		It("fails for a project that no longer exists", func() {
			ev := events.NewUploadBatchCompletedEvent("77", "1", []events.CompletedFile{{ID: "a", Name: "x.txt"}})
			err := service.HandleBatchCompleted(context.Background(), ev)
			Expect(errors.Is(err, internal.ErrProjectNotFound)).To(BeTrue())
		})

		It("rejects other event types", func() {
			err := service.HandleBatchCompleted(context.Background(), events.NewUploadProgressEvent("1", "a", 10))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Summary", func() {
		It("zero-fills statuses and lists the next open deadlines", func() {
			for i, d := range []string{"2024-03-01", "2024-05-01", "2024-04-01", "2024-06-01"} {
				dto := validDTO()
				dto.Deadline = d
				if i == 1 {
					dto.Status = project.StatusCompleted
				}
				_, err := service.Create(admin, dto)
				Expect(err).NotTo(HaveOccurred())
			}

			now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
			counts, next, err := service.Summary(now, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(HaveKeyWithValue(project.StatusInProgress, int64(3)))
			Expect(counts).To(HaveKeyWithValue(project.StatusCompleted, int64(1)))
			Expect(counts).To(HaveKeyWithValue(project.StatusOnHold, int64(0)))
			Expect(counts).To(HaveKeyWithValue(project.StatusPlanning, int64(0)))

			Expect(next).To(HaveLen(2))
			Expect(next[0].Deadline.Format(time.DateOnly)).To(Equal("2024-04-01"))
			Expect(next[1].Deadline.Format(time.DateOnly)).To(Equal("2024-06-01"))
		})
	})
})
