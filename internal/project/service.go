package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	projectDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/project"
	"github.com/frahmantamala/client-portal/internal/core/events"
	"github.com/frahmantamala/client-portal/internal/session"
)

type RepositoryAPI interface {
	List(filter ListFilter) ([]*projectDatamodel.Project, error)
	GetByID(id int64) (*projectDatamodel.Project, error)
	Create(p *projectDatamodel.Project) error
	Update(p *projectDatamodel.Project) error
	Delete(id int64) error
	AddFiles(projectID int64, files []projectDatamodel.ProjectFile) error
	CountByStatus() (map[string]int64, error)
	UpcomingDeadlines(from time.Time, limit int) ([]*projectDatamodel.Project, error)
}

// ErrNotFound is returned by repositories when a project does not exist.
var ErrNotFound = errors.New("project not found")

// BatchCleaner forgets a project's staged uploads.
type BatchCleaner interface {
	Drop(projectID string) bool
}

type Service struct {
	repo    RepositoryAPI
	batches BatchCleaner
	logger  *slog.Logger
}

func NewService(repo RepositoryAPI, batches BatchCleaner, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		batches: batches,
		logger:  logger,
	}
}

func (s *Service) List(actor *session.Session, filter ListFilter) ([]*Project, error) {
	if !actor.HasPermission(session.PermViewProjects) {
		return nil, internal.ErrPermissionDenied
	}

	rows, err := s.repo.List(filter)
	if err != nil {
		s.logger.Error("failed to list projects", "error", err)
		return nil, internal.NewInternalError("failed to list projects", err)
	}

	projects := make([]*Project, 0, len(rows))
	for _, row := range rows {
		projects = append(projects, FromDataModel(row))
	}
	return projects, nil
}

func (s *Service) Get(actor *session.Session, id int64) (*Project, error) {
	if !actor.HasPermission(session.PermViewProjects) {
		return nil, internal.ErrPermissionDenied
	}
	return s.get(id)
}

func (s *Service) get(id int64) (*Project, error) {
	row, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrProjectNotFound
		}
		s.logger.Error("failed to get project", "error", err, "project_id", id)
		return nil, internal.NewInternalError("failed to get project", err)
	}
	return FromDataModel(row), nil
}

func (s *Service) Create(actor *session.Session, dto ProjectDTO) (*Project, error) {
	if !actor.HasPermission(session.PermEditProjects) {
		s.logger.Warn("create project denied: insufficient permissions", "user_id", userID(actor))
		return nil, internal.ErrPermissionDenied
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p := &Project{
		Name:        dto.Name,
		Client:      dto.Client,
		Status:      dto.Status,
		Deadline:    dto.DeadlineTime(),
		Description: dto.Description,
		CreatedBy:   actor.UserID,
	}

	row := ToDataModel(p)
	if err := s.repo.Create(row); err != nil {
		s.logger.Error("failed to create project", "error", err)
		return nil, internal.NewInternalError("failed to create project", err)
	}

	s.logger.Info("project created", "project_id", row.ID, "user_id", actor.UserID)
	return FromDataModel(row), nil
}

func (s *Service) Update(actor *session.Session, id int64, dto ProjectDTO) (*Project, error) {
	if !actor.HasPermission(session.PermEditProjects) {
		s.logger.Warn("update project denied: insufficient permissions", "user_id", userID(actor), "project_id", id)
		return nil, internal.ErrPermissionDenied
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	row, err := s.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrProjectNotFound
		}
		return nil, internal.NewInternalError("failed to get project", err)
	}

	row.Name = dto.Name
	row.Client = dto.Client
	row.Status = dto.Status
	row.Deadline = dto.DeadlineTime()
	row.Description = dto.Description

	if err := s.repo.Update(row); err != nil {
		s.logger.Error("failed to update project", "error", err, "project_id", id)
		return nil, internal.NewInternalError("failed to update project", err)
	}

	s.logger.Info("project updated", "project_id", id, "user_id", actor.UserID)
	return FromDataModel(row), nil
}

func (s *Service) Delete(actor *session.Session, id int64) error {
	if !actor.HasPermission(session.PermEditProjects) {
		s.logger.Warn("delete project denied: insufficient permissions", "user_id", userID(actor), "project_id", id)
		return internal.ErrPermissionDenied
	}

	if err := s.repo.Delete(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return internal.ErrProjectNotFound
		}
		s.logger.Error("failed to delete project", "error", err, "project_id", id)
		return internal.NewInternalError("failed to delete project", err)
	}

	if s.batches != nil {
		s.batches.Drop(strconv.FormatInt(id, 10))
	}

	s.logger.Info("project deleted", "project_id", id, "user_id", actor.UserID)
	return nil
}

// Exists is used by the upload routes before staging anything.
func (s *Service) Exists(id int64) error {
	_, err := s.get(id)
	return err
}

// AttachFiles merges processed uploads into a project. Failed files are skipped.
func (s *Service) AttachFiles(projectID int64, uploadedBy string, completed []events.CompletedFile) (int, error) {
	now := time.Now().UTC()
	files := make([]projectDatamodel.ProjectFile, 0, len(completed))
	for _, c := range completed {
		if c.Failed {
			continue
		}
		files = append(files, FileToDataModel(projectID, File{
			ID:         c.ID,
			Name:       c.Name,
			MediaType:  c.MediaType,
			Size:       c.Size,
			Sensitive:  c.Sensitive,
			Encoded:    c.Encoded,
			Checksum:   c.Checksum,
			UploadedBy: uploadedBy,
			UploadedAt: now,
		}))
	}
	if len(files) == 0 {
		return 0, nil
	}

	if err := s.repo.AddFiles(projectID, files); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, internal.ErrProjectNotFound
		}
		return 0, internal.NewInternalError("failed to attach files", err)
	}
	return len(files), nil
}

// HandleBatchCompleted subscribes AttachFiles to upload completion.
func (s *Service) HandleBatchCompleted(ctx context.Context, event events.Event) error {
	ev, ok := event.(*events.UploadBatchCompletedEvent)
	if !ok {
		s.logger.Error("invalid event type for batch completed handler", "event_type", event.EventType())
		return fmt.Errorf("expected UploadBatchCompletedEvent, got %T", event)
	}

	projectID, err := strconv.ParseInt(ev.ProjectID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid project id %q: %w", ev.ProjectID, err)
	}

	n, err := s.AttachFiles(projectID, ev.UserID, ev.Files)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to attach uploaded files",
			"error", err,
			"project_id", projectID,
			"event_id", ev.EventID())
		return err
	}

	s.logger.InfoContext(ctx, "uploaded files attached to project",
		"project_id", projectID,
		"attached", n,
		"event_id", ev.EventID())
	return nil
}

func (s *Service) RegisterEventHandlers(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeUploadBatchComplete, s.HandleBatchCompleted)
}

// Summary feeds the dashboard.
func (s *Service) Summary(now time.Time, upcoming int) (map[string]int64, []*Project, error) {
	counts, err := s.repo.CountByStatus()
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to count projects", err)
	}
	if counts == nil {
		counts = make(map[string]int64, len(Statuses))
	}
	for _, st := range Statuses {
		if _, ok := counts[st]; !ok {
			counts[st] = 0
		}
	}

	rows, err := s.repo.UpcomingDeadlines(now, upcoming)
	if err != nil {
		return nil, nil, internal.NewInternalError("failed to load deadlines", err)
	}
	next := make([]*Project, 0, len(rows))
	for _, row := range rows {
		next = append(next, FromDataModel(row))
	}
	return counts, next, nil
}

func userID(s *session.Session) string {
	if s == nil {
		return ""
	}
	return s.UserID
}
