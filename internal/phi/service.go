package phi

import (
	"context"
	"errors"
	"log/slog"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/audit"
	phiDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/phi"
	"github.com/frahmantamala/client-portal/internal/cryptox"
	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/google/uuid"
)

type RepositoryAPI interface {
	Create(ctx context.Context, r *phiDatamodel.Record) error
	GetByID(ctx context.Context, id string) (*phiDatamodel.Record, error)
	List(ctx context.Context, mrnDigest string) ([]*phiDatamodel.Record, error)
}

type Codec interface {
	Encode(v any) (string, error)
	Decode(token string, v any) error
}

var ErrNotFound = errors.New("phi record not found")

type Service struct {
	repo     RepositoryAPI
	codec    Codec
	recorder audit.Recorder
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, codec Codec, recorder audit.Recorder, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		codec:    codec,
		recorder: recorder,
		logger:   logger,
	}
}

func (s *Service) record(ctx context.Context, actor *session.Session, action, id, access, status string) {
	err := s.recorder.Append(context.WithoutCancel(ctx), audit.Entry{
		UserID:       actor.UserID,
		UserName:     actor.Name,
		Action:       action,
		ResourceType: audit.ResourcePHIRecord,
		ResourceID:   id,
		AccessType:   access,
		Status:       status,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record phi audit entry", "error", err, "record_id", id, "action", action)
	}
}

// Create stores a record. Protected fields are encoded before they reach the
// repository and the medical record number is also kept as a digest for lookups.
func (s *Service) Create(ctx context.Context, actor *session.Session, dto CreateRecordDTO) (*View, error) {
	if !actor.HasPermission(session.PermViewDocuments) {
		return nil, internal.ErrPermissionDenied
	}
	if !actor.CanAccessPHI() {
		s.logger.WarnContext(ctx, "phi create denied", "user_id", actor.UserID, "phi_access", string(actor.PHIAccess))
		s.record(ctx, actor, audit.ActionPHICreate, "", audit.AccessWrite, audit.StatusDenied)
		return nil, internal.ErrPHIAccessDenied
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	rec := &Record{
		ID:         uuid.New().String(),
		OwnerID:    actor.UserID,
		Attributes: make(map[string]string),
		Protected:  make(map[string]string),
		MRNDigest:  cryptox.Digest(dto.Fields[FieldMRN]),
	}
	for k, v := range dto.Fields {
		if !IsProtected(k) {
			rec.Attributes[k] = v
			continue
		}
		token, err := s.codec.Encode(v)
		if err != nil {
			return nil, internal.NewInternalError("failed to encode protected field", err)
		}
		rec.Protected[k] = token
	}

	row := ToDataModel(rec)
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to store phi record", "error", err)
		return nil, internal.NewInternalError("failed to store record", err)
	}

	s.record(ctx, actor, audit.ActionPHICreate, row.ID, audit.AccessWrite, audit.StatusCompleted)
	s.logger.InfoContext(ctx, "phi record created", "record_id", row.ID, "user_id", actor.UserID)

	view, err := s.render(FromDataModel(row), session.PHIClear)
	if err != nil {
		return nil, err
	}
	return view, nil
}

// Get renders a record for the session's PHI tier. Every attempt, including a
// denied one, leaves a read entry in the audit log.
func (s *Service) Get(ctx context.Context, actor *session.Session, id string) (*View, error) {
	if !actor.HasPermission(session.PermViewDocuments) {
		return nil, internal.ErrPermissionDenied
	}

	mode := actor.PHIView()
	if mode == session.PHIHidden {
		s.logger.WarnContext(ctx, "phi view denied", "user_id", actor.UserID, "record_id", id)
		s.record(ctx, actor, audit.ActionPHIView, id, audit.AccessRead, audit.StatusDenied)
		return nil, internal.ErrPHIAccessDenied
	}

	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrRecordNotFound
		}
		return nil, internal.NewInternalError("failed to load record", err)
	}

	view, err := s.render(FromDataModel(row), mode)
	if err != nil {
		return nil, err
	}
	s.record(ctx, actor, audit.ActionPHIView, id, audit.AccessRead, audit.StatusCompleted)
	return view, nil
}

// List returns records without protected values. mrn narrows the result to
// records with that medical record number.
func (s *Service) List(ctx context.Context, actor *session.Session, mrn string) ([]Summary, error) {
	if !actor.HasPermission(session.PermViewDocuments) {
		return nil, internal.ErrPermissionDenied
	}

	digest := ""
	if mrn != "" {
		if !actor.CanAccessPHI() {
			return nil, internal.ErrPHIAccessDenied
		}
		digest = cryptox.Digest(mrn)
	}

	rows, err := s.repo.List(ctx, digest)
	if err != nil {
		return nil, internal.NewInternalError("failed to list records", err)
	}

	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, Summary{
			ID:         row.ID,
			OwnerID:    row.OwnerID,
			Attributes: row.Attributes,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}

func (s *Service) render(rec *Record, mode session.PHIView) (*View, error) {
	view := &View{
		ID:         rec.ID,
		OwnerID:    rec.OwnerID,
		Mode:       mode.String(),
		Attributes: rec.Attributes,
		PHI:        make(map[string]string, len(rec.Protected)),
		CreatedAt:  rec.CreatedAt,
	}
	if view.Attributes == nil {
		view.Attributes = map[string]string{}
	}

	for k, token := range rec.Protected {
		var value string
		if err := s.codec.Decode(token, &value); err != nil {
			return nil, internal.NewInternalError("failed to decode protected field", err)
		}
		if mode == session.PHIMasked {
			value = cryptox.Digest(value)
		}
		view.PHI[k] = value
	}
	return view, nil
}
