package project

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/transport"
	"github.com/frahmantamala/client-portal/internal/upload"
	"github.com/go-chi/chi"
)

type ProjectChecker interface {
	Exists(id int64) error
}

type UploadHandler struct {
	*transport.BaseHandler
	Projects ProjectChecker
	Batches  *upload.Registry
	Stager   *upload.Stager
}

func NewUploadHandler(baseHandler *transport.BaseHandler, projects ProjectChecker, batches *upload.Registry, stager *upload.Stager) *UploadHandler {
	return &UploadHandler{
		BaseHandler: baseHandler,
		Projects:    projects,
		Batches:     batches,
		Stager:      stager,
	}
}

type BatchResponse struct {
	ProjectID string             `json:"project_id"`
	Files     []upload.Candidate `json:"files"`
	TotalSize int64              `json:"total_size"`
	Uploading bool               `json:"uploading"`
	Error     string             `json:"error,omitempty"`
}

func (h *UploadHandler) batch(w http.ResponseWriter, r *http.Request) (*upload.Batch, bool) {
	id, appErr := h.URLParamInt64(r, "id")
	if appErr != nil {
		h.WriteAppError(w, appErr)
		return nil, false
	}
	if err := h.Projects.Exists(id); err != nil {
		h.HandleServiceError(w, err)
		return nil, false
	}
	return h.Batches.Get(strconv.FormatInt(id, 10)), true
}

func (h *UploadHandler) writeBatch(w http.ResponseWriter, status int, b *upload.Batch) {
	resp := BatchResponse{
		ProjectID: b.ProjectID(),
		Files:     b.Candidates(),
		TotalSize: b.TotalSize(),
		Uploading: b.Uploading(),
	}
	if e := b.Err(); e != nil {
		resp.Error = e.Message
	}
	h.WriteJSON(w, status, resp)
}

func (h *UploadHandler) GetBatch(w http.ResponseWriter, r *http.Request) {
	b, ok := h.batch(w, r)
	if !ok {
		return
	}
	h.writeBatch(w, http.StatusOK, b)
}

// AddFiles stages every part named "files" and adds them as one set. If the
// set is rejected nothing stays staged. A part that runs past the file or
// total ceiling aborts the request without reading the rest of it.
func (h *UploadHandler) AddFiles(w http.ResponseWriter, r *http.Request) {
	b, ok := h.batch(w, r)
	if !ok {
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		h.WriteAppError(w, internal.NewValidationError("expected multipart/form-data body", internal.ErrCodeValidationFailed).WithCause(err))
		return
	}

	limits := b.Limits()
	remaining := limits.MaxTotalSize - b.TotalSize()

	var refs []upload.FileRef
	release := func() {
		for _, ref := range refs {
			if rel, ok := ref.(upload.Releaser); ok {
				_ = rel.Release()
			}
		}
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			release()
			h.WriteAppError(w, internal.NewValidationError("malformed multipart body", internal.ErrCodeValidationFailed).WithCause(err))
			return
		}
		if part.FormName() != "files" || part.FileName() == "" {
			part.Close()
			continue
		}

		mediaType := part.Header.Get("Content-Type")
		if mediaType == "" {
			mediaType = "application/octet-stream"
		}
		limit := min(limits.MaxFileSize, remaining)
		ref, err := h.Stager.StageLimited(part.FileName(), mediaType, part, limit)
		part.Close()
		if errors.Is(err, upload.ErrStageLimit) {
			release()
			appErr := limits.TotalTooLarge()
			if limit == limits.MaxFileSize {
				appErr = limits.FileTooLarge(part.FileName())
			}
			b.Reject(appErr)
			h.WriteAppError(w, appErr)
			return
		}
		if err != nil {
			release()
			h.HandleServiceError(w, internal.NewInternalError("failed to stage upload", err))
			return
		}
		refs = append(refs, ref)
		remaining -= ref.Size()
	}

	if len(refs) == 0 {
		h.WriteAppError(w, internal.NewValidationFieldError("files", "at least one file is required", internal.ErrCodeValidationFailed))
		return
	}

	if err := b.AddCandidates(refs); err != nil {
		release()
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("AddFiles: files staged", "project_id", b.ProjectID(), "count", len(refs))
	h.writeBatch(w, http.StatusCreated, b)
}

func (h *UploadHandler) RemoveFile(w http.ResponseWriter, r *http.Request) {
	b, ok := h.batch(w, r)
	if !ok {
		return
	}
	b.RemoveCandidate(chi.URLParam(r, "fileID"))
	h.writeBatch(w, http.StatusOK, b)
}

func (h *UploadHandler) ClearBatch(w http.ResponseWriter, r *http.Request) {
	b, ok := h.batch(w, r)
	if !ok {
		return
	}
	b.Clear()
	w.WriteHeader(http.StatusNoContent)
}

// Submit streams batch events as newline-delimited JSON.
func (h *UploadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	b, ok := h.batch(w, r)
	if !ok {
		return
	}

	stream, err := b.Submit(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	enc := json.NewEncoder(w)
	for ev := range stream {
		if err := enc.Encode(ev); err != nil {
			h.Logger.Warn("Submit: client went away", "project_id", b.ProjectID(), "error", err)
			// a lost client cancels the request context and the batch stops early;
			// drain until it closes the stream after its final event
			continue
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}
