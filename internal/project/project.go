package project

import (
	"time"

	projectDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/project"
)

const (
	StatusPlanning   = "Planning"
	StatusInProgress = "In Progress"
	StatusOnHold     = "On Hold"
	StatusCompleted  = "Completed"
)

var Statuses = []string{StatusPlanning, StatusInProgress, StatusOnHold, StatusCompleted}

type Project struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Client      string    `json:"client"`
	Status      string    `json:"status"`
	Deadline    time.Time `json:"deadline"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Files       []File    `json:"files"`
}

// File is a processed upload attached to a project. Only metadata and the
// artifact checksum are kept.
type File struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	MediaType  string    `json:"media_type"`
	Size       int64     `json:"size"`
	Sensitive  bool      `json:"sensitive"`
	Encoded    bool      `json:"encoded"`
	Checksum   string    `json:"checksum"`
	UploadedBy string    `json:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func (p *Project) IsOpen() bool {
	return p.Status != StatusCompleted
}

func (p *Project) ToResponse() ProjectResponse {
	files := make([]File, len(p.Files))
	copy(files, p.Files)
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Client:      p.Client,
		Status:      p.Status,
		Deadline:    p.Deadline.Format(time.DateOnly),
		Description: p.Description,
		Files:       files,
	}
}

func ToDataModel(p *Project) *projectDatamodel.Project {
	files := make([]projectDatamodel.ProjectFile, 0, len(p.Files))
	for _, f := range p.Files {
		files = append(files, FileToDataModel(p.ID, f))
	}
	return &projectDatamodel.Project{
		ID:          p.ID,
		Name:        p.Name,
		Client:      p.Client,
		Status:      p.Status,
		Deadline:    p.Deadline,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Files:       files,
	}
}

func FromDataModel(p *projectDatamodel.Project) *Project {
	files := make([]File, 0, len(p.Files))
	for _, f := range p.Files {
		files = append(files, File{
			ID:         f.ID,
			Name:       f.Name,
			MediaType:  f.MediaType,
			Size:       f.Size,
			Sensitive:  f.Sensitive,
			Encoded:    f.Encoded,
			Checksum:   f.Checksum,
			UploadedBy: f.UploadedBy,
			UploadedAt: f.UploadedAt,
		})
	}
	return &Project{
		ID:          p.ID,
		Name:        p.Name,
		Client:      p.Client,
		Status:      p.Status,
		Deadline:    p.Deadline,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Files:       files,
	}
}

func FileToDataModel(projectID int64, f File) projectDatamodel.ProjectFile {
	return projectDatamodel.ProjectFile{
		ID:         f.ID,
		ProjectID:  projectID,
		Name:       f.Name,
		MediaType:  f.MediaType,
		Size:       f.Size,
		Sensitive:  f.Sensitive,
		Encoded:    f.Encoded,
		Checksum:   f.Checksum,
		UploadedBy: f.UploadedBy,
		UploadedAt: f.UploadedAt,
	}
}
