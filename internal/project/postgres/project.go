package postgres

import (
	"errors"
	"strings"
	"time"

	projectDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/project"
	"github.com/frahmantamala/client-portal/internal/project"
	"gorm.io/gorm"
)

type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) List(filter project.ListFilter) ([]*projectDatamodel.Project, error) {
	var projects []*projectDatamodel.Project

	q := r.db.Preload("Files", func(db *gorm.DB) *gorm.DB {
		return db.Order("uploaded_at ASC")
	})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(client) LIKE ?", like, like)
	}

	err := q.Order("deadline ASC").Order("id ASC").Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) GetByID(id int64) (*projectDatamodel.Project, error) {
	var p projectDatamodel.Project
	err := r.db.Preload("Files", func(db *gorm.DB) *gorm.DB {
		return db.Order("uploaded_at ASC")
	}).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, project.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProjectRepository) Create(p *projectDatamodel.Project) error {
	return r.db.Omit("Files").Create(p).Error
}

func (r *ProjectRepository) Update(p *projectDatamodel.Project) error {
	p.UpdatedAt = time.Now()
	return r.db.Omit("Files").Save(p).Error
}

func (r *ProjectRepository) Delete(id int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&projectDatamodel.ProjectFile{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&projectDatamodel.Project{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return project.ErrNotFound
		}
		return nil
	})
}

// AddFiles appends files to an existing project in one transaction.
func (r *ProjectRepository) AddFiles(projectID int64, files []projectDatamodel.ProjectFile) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&projectDatamodel.Project{}).Where("id = ?", projectID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return project.ErrNotFound
		}
		if err := tx.Create(&files).Error; err != nil {
			return err
		}
		return tx.Model(&projectDatamodel.Project{}).Where("id = ?", projectID).
			Update("updated_at", time.Now()).Error
	})
}

func (r *ProjectRepository) CountByStatus() (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.Model(&projectDatamodel.Project{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// UpcomingDeadlines returns open projects due on or after from, soonest first.
func (r *ProjectRepository) UpcomingDeadlines(from time.Time, limit int) ([]*projectDatamodel.Project, error) {
	var projects []*projectDatamodel.Project
	err := r.db.Where("deadline >= ? AND status <> ?", from, project.StatusCompleted).
		Order("deadline ASC").
		Limit(limit).
		Find(&projects).Error
	return projects, err
}
