package postgres_test

import (
	"testing"
	"time"

	projectDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/project"
	"github.com/frahmantamala/client-portal/internal/project"
	projectPostgres "github.com/frahmantamala/client-portal/internal/project/postgres"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestProjectPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Project Postgres Suite")
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	Expect(err).NotTo(HaveOccurred())
	return t
}

var _ = Describe("Project Repository", func() {
	var (
		db   *gorm.DB
		repo *projectPostgres.ProjectRepository
	)

	newProject := func(name, client, status, deadline string) *projectDatamodel.Project {
		p := &projectDatamodel.Project{
			Name:        name,
			Client:      client,
			Status:      status,
			Deadline:    date(deadline),
			Description: name + " work",
			CreatedBy:   "1",
		}
		Expect(repo.Create(p)).To(Succeed())
		return p
	}

	BeforeEach(func() {
		var err error
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())

		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		err = db.AutoMigrate(&projectDatamodel.Project{}, &projectDatamodel.ProjectFile{})
		Expect(err).NotTo(HaveOccurred())

		repo = projectPostgres.NewProjectRepository(db)
	})

	Describe("Create and GetByID", func() {
		It("assigns an id and reads the project back", func() {
			p := newProject("Website Redesign", "Acme", project.StatusInProgress, "2024-04-15")
			Expect(p.ID).To(BeNumerically(">", 0))

			got, err := repo.GetByID(p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("Website Redesign"))
			Expect(got.Deadline.Format(time.DateOnly)).To(Equal("2024-04-15"))
			Expect(got.Files).To(BeEmpty())
		})

		It("returns ErrNotFound for a missing id", func() {
			_, err := repo.GetByID(404)
			Expect(err).To(MatchError(project.ErrNotFound))
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			newProject("Website Redesign", "Acme Health", project.StatusInProgress, "2024-04-15")
			newProject("Mobile App", "Globex", project.StatusPlanning, "2024-03-01")
			newProject("Data Migration", "Acme Health", project.StatusCompleted, "2024-01-10")
		})

		It("orders by deadline", func() {
			projects, err := repo.List(project.ListFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(projects).To(HaveLen(3))
			Expect(projects[0].Name).To(Equal("Data Migration"))
			Expect(projects[2].Name).To(Equal("Website Redesign"))
		})

		It("filters by status", func() {
			projects, err := repo.List(project.ListFilter{Status: project.StatusPlanning})
			Expect(err).NotTo(HaveOccurred())
			Expect(projects).To(HaveLen(1))
			Expect(projects[0].Name).To(Equal("Mobile App"))
		})

		It("searches name and client case-insensitively", func() {
			projects, err := repo.List(project.ListFilter{Search: "acme"})
			Expect(err).NotTo(HaveOccurred())
			Expect(projects).To(HaveLen(2))
		})
	})

	Describe("Update", func() {
		It("persists changed fields", func() {
			p := newProject("Website Redesign", "Acme", project.StatusPlanning, "2024-04-15")
			p.Status = project.StatusOnHold
			Expect(repo.Update(p)).To(Succeed())

			got, err := repo.GetByID(p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(project.StatusOnHold))
		})
	})

	Describe("AddFiles and Delete", func() {
		It("attaches files and removes them with the project", func() {
			p := newProject("Website Redesign", "Acme", project.StatusPlanning, "2024-04-15")

			err := repo.AddFiles(p.ID, []projectDatamodel.ProjectFile{
				{ID: "f1", ProjectID: p.ID, Name: "brief.pdf", Size: 10, UploadedAt: time.Now()},
				{ID: "f2", ProjectID: p.ID, Name: "patient_list.csv", Size: 20, Sensitive: true, Encoded: true, UploadedAt: time.Now().Add(time.Second)},
			})
			Expect(err).NotTo(HaveOccurred())

			got, err := repo.GetByID(p.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Files).To(HaveLen(2))
			Expect(got.Files[0].Name).To(Equal("brief.pdf"))
			Expect(got.Files[1].Sensitive).To(BeTrue())

			Expect(repo.Delete(p.ID)).To(Succeed())

			var remaining int64
			Expect(db.Model(&projectDatamodel.ProjectFile{}).Count(&remaining).Error).To(Succeed())
			Expect(remaining).To(BeZero())
		})

		It("refuses files for an unknown project", func() {
			err := repo.AddFiles(9, []projectDatamodel.ProjectFile{{ID: "f1", ProjectID: 9, Name: "x"}})
			Expect(err).To(MatchError(project.ErrNotFound))
		})

		It("reports ErrNotFound when deleting a missing project", func() {
			Expect(repo.Delete(9)).To(MatchError(project.ErrNotFound))
		})
	})

	Describe("Dashboard queries", func() {
		BeforeEach(func() {
			newProject("A", "c", project.StatusInProgress, "2024-03-20")
			newProject("B", "c", project.StatusInProgress, "2024-05-01")
			newProject("C", "c", project.StatusCompleted, "2024-04-01")
			newProject("D", "c", project.StatusOnHold, "2024-04-10")
			newProject("E", "c", project.StatusPlanning, "2024-02-01")
		})

		It("counts projects per status", func() {
			counts, err := repo.CountByStatus()
			Expect(err).NotTo(HaveOccurred())
			Expect(counts).To(HaveKeyWithValue(project.StatusInProgress, int64(2)))
			Expect(counts).To(HaveKeyWithValue(project.StatusCompleted, int64(1)))
		})

		It("lists open deadlines from a date, soonest first", func() {
			next, err := repo.UpcomingDeadlines(date("2024-03-01"), 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(HaveLen(3))
			Expect(next[0].Name).To(Equal("A"))
			Expect(next[1].Name).To(Equal("D"))
			Expect(next[2].Name).To(Equal("B"))
		})
	})
})
