package audit

import (
	"context"
	"time"

	auditDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/audit"
)

const (
	ActionFileUpload = "file_upload"
	ActionPHIView    = "phi_view"
	ActionPHICreate  = "phi_create"

	ResourceSensitiveDocument = "sensitive_document"
	ResourcePHIRecord         = "phi_record"

	AccessRead  = "read"
	AccessWrite = "write"

	StatusCompleted = "completed"
	StatusDenied    = "denied"
)

type Entry struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	UserID       string    `json:"user_id"`
	UserName     string    `json:"user_name"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	AccessType   string    `json:"access_type"`
	Status       string    `json:"status"`
}

type Filter struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	Since        time.Time
	Limit        int
}

// RepositoryAPI is append-only: there is no update path.
type RepositoryAPI interface {
	Insert(ctx context.Context, entry *auditDatamodel.AuditLog) error
	List(ctx context.Context, filter Filter) ([]*auditDatamodel.AuditLog, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Recorder is what producers of audit entries depend on.
type Recorder interface {
	Append(ctx context.Context, entry Entry) error
}

func ToDataModel(e *Entry) *auditDatamodel.AuditLog {
	return &auditDatamodel.AuditLog{
		ID:           e.ID,
		OccurredAt:   e.Timestamp,
		UserID:       e.UserID,
		UserName:     e.UserName,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		AccessType:   e.AccessType,
		Status:       e.Status,
	}
}

func FromDataModel(a *auditDatamodel.AuditLog) *Entry {
	return &Entry{
		ID:           a.ID,
		Timestamp:    a.OccurredAt,
		UserID:       a.UserID,
		UserName:     a.UserName,
		Action:       a.Action,
		ResourceType: a.ResourceType,
		ResourceID:   a.ResourceID,
		AccessType:   a.AccessType,
		Status:       a.Status,
	}
}
