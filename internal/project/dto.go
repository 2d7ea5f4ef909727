package project

import (
	"strings"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/core/common/validation"
)

// ProjectDTO is the body of both create and update; updates replace every field.
type ProjectDTO struct {
	Name        string `json:"name"`
	Client      string `json:"client"`
	Status      string `json:"status"`
	Deadline    string `json:"deadline"`
	Description string `json:"description"`
}

func (dto *ProjectDTO) Normalize() {
	dto.Name = strings.TrimSpace(dto.Name)
	dto.Client = strings.TrimSpace(dto.Client)
	dto.Description = strings.TrimSpace(dto.Description)
	if dto.Status == "" {
		dto.Status = StatusPlanning
	}
}

func (dto ProjectDTO) Validate() *internal.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(200)
	v.Field("client", dto.Client).Required().MaxLength(200)
	v.Field("status", dto.Status).OneOf(Statuses, internal.ErrCodeInvalidStatus)
	v.Field("deadline", dto.Deadline).Required().Date()
	v.Field("description", dto.Description).Required().MaxLength(2000)
	return v.Validate()
}

// DeadlineTime assumes Validate has passed.
func (dto ProjectDTO) DeadlineTime() time.Time {
	t, _ := time.Parse(time.DateOnly, dto.Deadline)
	return t
}

type ProjectResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Client      string `json:"client"`
	Status      string `json:"status"`
	Deadline    string `json:"deadline"`
	Description string `json:"description"`
	Files       []File `json:"files"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

type ListFilter struct {
	Status string
	Search string
}
