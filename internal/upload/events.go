package upload

import (
	"github.com/frahmantamala/client-portal/internal/core/events"
)

type EventKind string

const (
	EventProgress       EventKind = "progress"
	EventFileFailed     EventKind = "file_failed"
	EventBatchCompleted EventKind = "batch_completed"
)

// Event is one element of a Submit stream.
type Event struct {
	Kind     EventKind       `json:"kind"`
	FileID   string          `json:"file_id,omitempty"`
	FileName string          `json:"file_name,omitempty"`
	Progress int             `json:"progress"`
	Error    string          `json:"error,omitempty"`
	Files    []ProcessedFile `json:"files,omitempty"`
}

// ProcessedFile is the outcome for one candidate. For sensitive files the
// checksum covers the encoded form, never the raw content.
type ProcessedFile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
	Sensitive bool   `json:"sensitive"`
	Encoded   bool   `json:"encoded"`
	Checksum  string `json:"checksum,omitempty"`
	Failed    bool   `json:"failed"`
}

func toCompletedFiles(files []ProcessedFile) []events.CompletedFile {
	out := make([]events.CompletedFile, 0, len(files))
	for _, f := range files {
		out = append(out, events.CompletedFile{
			ID:        f.ID,
			Name:      f.Name,
			MediaType: f.MediaType,
			Size:      f.Size,
			Sensitive: f.Sensitive,
			Encoded:   f.Encoded,
			Checksum:  f.Checksum,
			Failed:    f.Failed,
		})
	}
	return out
}
