package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeUploadProgress      = "upload.progress"
	EventTypeUploadFileFailed    = "upload.file_failed"
	EventTypeUploadBatchComplete = "upload.batch_completed"
)

type UploadProgressEvent struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	FileID    string `json:"file_id"`
	Progress  int    `json:"progress"`
}

func NewUploadProgressEvent(projectID, fileID string, progress int) *UploadProgressEvent {
	return &UploadProgressEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUploadProgress,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"project_id": projectID,
				"file_id":    fileID,
				"progress":   progress,
			},
		},
		ProjectID: projectID,
		FileID:    fileID,
		Progress:  progress,
	}
}

type UploadFileFailedEvent struct {
	BaseEvent
	ProjectID string `json:"project_id"`
	FileID    string `json:"file_id"`
	Reason    string `json:"reason"`
}

func NewUploadFileFailedEvent(projectID, fileID, reason string) *UploadFileFailedEvent {
	return &UploadFileFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUploadFileFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"project_id": projectID,
				"file_id":    fileID,
				"reason":     reason,
			},
		},
		ProjectID: projectID,
		FileID:    fileID,
		Reason:    reason,
	}
}

// CompletedFile is the bus-level view of a processed upload. It carries no
// content, only what a subscriber needs to record the file.
type CompletedFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
	Sensitive bool   `json:"sensitive"`
	Encoded   bool   `json:"encoded"`
	Checksum  string `json:"checksum"`
	Failed    bool   `json:"failed"`
}

type UploadBatchCompletedEvent struct {
	BaseEvent
	ProjectID string          `json:"project_id"`
	UserID    string          `json:"user_id"`
	Files     []CompletedFile `json:"files"`
}

func NewUploadBatchCompletedEvent(projectID, userID string, files []CompletedFile) *UploadBatchCompletedEvent {
	return &UploadBatchCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUploadBatchComplete,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"project_id": projectID,
				"user_id":    userID,
				"file_count": len(files),
			},
		},
		ProjectID: projectID,
		UserID:    userID,
		Files:     files,
	}
}
