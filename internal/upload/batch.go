package upload

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/audit"
	"github.com/frahmantamala/client-portal/internal/core/events"
	"github.com/frahmantamala/client-portal/internal/session"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"golang.org/x/time/rate"
)

var sensitiveMarkers = []string{"hipaa", "medical", "patient"}

// IsSensitive reports whether a file name marks protected content.
func IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range sensitiveMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

type Encoder interface {
	EncodeBytes(content []byte) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
	PublishSync(ctx context.Context, event events.Event) error
}

type Limits struct {
	MaxFileSize  int64
	MaxTotalSize int64
	ProgressStep int
	StepInterval time.Duration
}

func LimitsFromConfig(cfg internal.UploadConfig) Limits {
	return Limits{
		MaxFileSize:  cfg.MaxFileSize,
		MaxTotalSize: cfg.MaxTotalSize,
		ProgressStep: cfg.ProgressStep,
		StepInterval: cfg.StepInterval,
	}
}

func (l Limits) withDefaults() Limits {
	if l.MaxFileSize <= 0 {
		l.MaxFileSize = internal.DefaultMaxFileSize
	}
	if l.MaxTotalSize <= 0 {
		l.MaxTotalSize = internal.DefaultMaxTotalSize
	}
	if l.ProgressStep <= 0 || l.ProgressStep > 100 {
		l.ProgressStep = 10
	}
	if l.StepInterval < 0 {
		l.StepInterval = 0
	}
	return l
}

func (l Limits) FileTooLarge(name string) *internal.AppError {
	return internal.NewValidationError(
		fmt.Sprintf("File %q exceeds %s size limit", name, humanSize(l.MaxFileSize)),
		internal.ErrCodeFileSizeExceeded)
}

func (l Limits) TotalTooLarge() *internal.AppError {
	return internal.NewValidationError(
		fmt.Sprintf("Total file size exceeds %s limit", humanSize(l.MaxTotalSize)),
		internal.ErrCodeTotalSizeExceeded)
}

// Candidate is a staged file waiting for submission.
type Candidate struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Size      int64  `json:"size"`
	Progress  int    `json:"progress"`

	ref FileRef
}

// Dependencies of a Batch. Recorder and Bus may be nil.
type Deps struct {
	Encoder  Encoder
	Recorder audit.Recorder
	Bus      Publisher
	Logger   *slog.Logger
}

// Batch is the per-project upload controller.
type Batch struct {
	projectID string
	limits    Limits
	deps      Deps

	mu         sync.Mutex
	candidates []*Candidate
	lastErr    *internal.AppError
	uploading  bool
	inFlight   map[string]bool
}

func NewBatch(projectID string, limits Limits, deps Deps) *Batch {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Batch{
		projectID: projectID,
		limits:    limits.withDefaults(),
		deps:      deps,
	}
}

func (b *Batch) ProjectID() string {
	return b.projectID
}

// Limits returns the effective ceilings, defaults applied.
func (b *Batch) Limits() Limits {
	return b.limits
}

// Reject records a set refused before it reached AddCandidates, such as one
// cut off while still being received.
func (b *Batch) Reject(err *internal.AppError) {
	b.setErr(err)
}

// AddCandidates validates the incoming set against the size ceilings and
// appends it. A rejection leaves the batch untouched.
func (b *Batch) AddCandidates(files []FileRef) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var current, incoming int64
	for _, c := range b.candidates {
		current += c.Size
	}
	for _, f := range files {
		incoming += f.Size()
	}

	if current+incoming > b.limits.MaxTotalSize {
		b.lastErr = b.limits.TotalTooLarge()
		return b.lastErr
	}

	for _, f := range files {
		if f.Size() > b.limits.MaxFileSize {
			b.lastErr = b.limits.FileTooLarge(f.Name())
			return b.lastErr
		}
	}

	for _, f := range files {
		b.candidates = append(b.candidates, &Candidate{
			ID:        uuid.New().String(),
			Name:      f.Name(),
			MediaType: f.MediaType(),
			Size:      f.Size(),
			ref:       f,
		})
	}
	b.lastErr = nil
	return nil
}

// RemoveCandidate drops id if present. The error state is cleared either way.
func (b *Batch) RemoveCandidate(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, c := range b.candidates {
		if c.ID == id {
			b.candidates = append(b.candidates[:i], b.candidates[i+1:]...)
			if !b.inFlight[id] {
				b.release(c)
			}
			break
		}
	}
	b.lastErr = nil
}

// Clear drops every candidate and the error state.
func (b *Batch) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, c := range b.candidates {
		if !b.inFlight[c.ID] {
			b.release(c)
		}
	}
	b.candidates = nil
	b.lastErr = nil
}

func (b *Batch) Candidates() []Candidate {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Candidate, 0, len(b.candidates))
	for _, c := range b.candidates {
		out = append(out, *c)
	}
	return out
}

// Err returns the current error message holder, or nil.
func (b *Batch) Err() *internal.AppError {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

func (b *Batch) TotalSize() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	var total int64
	for _, c := range b.candidates {
		total += c.Size
	}
	return total
}

func (b *Batch) Uploading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.uploading
}

// Submit processes the staged files one at a time and streams events. The
// stream always ends with a BatchCompleted event unless the consumer has gone
// away. The acting user is taken from the session in ctx.
func (b *Batch) Submit(ctx context.Context) (<-chan Event, error) {
	actor, ok := session.FromContext(ctx)
	if !ok {
		return nil, internal.ErrPermissionDenied
	}

	b.mu.Lock()
	if b.uploading {
		b.mu.Unlock()
		return nil, internal.ErrUploadInProgress
	}
	if len(b.candidates) == 0 {
		b.mu.Unlock()
		return nil, internal.ErrEmptyBatch
	}
	snapshot := make([]*Candidate, len(b.candidates))
	copy(snapshot, b.candidates)
	b.inFlight = make(map[string]bool, len(snapshot))
	for _, c := range snapshot {
		b.inFlight[c.ID] = true
	}
	b.uploading = true
	b.mu.Unlock()

	out := make(chan Event, 1)
	go b.run(ctx, actor, snapshot, out)
	return out, nil
}

func (b *Batch) run(ctx context.Context, actor *session.Session, snapshot []*Candidate, out chan<- Event) {
	defer close(out)

	logger := b.deps.Logger.With("project_id", b.projectID, "user_id", actor.UserID)
	limiter := rate.NewLimiter(rate.Inf, 1)
	if b.limits.StepInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(b.limits.StepInterval), 1)
	}

	emit := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	logger.InfoContext(ctx, "upload batch started", "files", len(snapshot))

	processed := make([]ProcessedFile, 0, len(snapshot))
	cancelled := false
	for _, c := range snapshot {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		pf, err := b.process(c)
		if err != nil {
			logger.WarnContext(ctx, "upload file read failed", "file_id", c.ID, "error", err)
			b.setErr(internal.NewReadError(fmt.Sprintf("Failed to upload %s", c.Name), err))
			b.publish(ctx, events.NewUploadFileFailedEvent(b.projectID, c.ID, err.Error()))
			processed = append(processed, pf)
			b.finishFile(c)
			if !emit(Event{Kind: EventFileFailed, FileID: c.ID, FileName: c.Name, Error: b.Err().Message}) {
				cancelled = true
				break
			}
			continue
		}

		if !b.stepProgress(ctx, limiter, c, emit) {
			cancelled = true
			break
		}

		if pf.Sensitive && b.deps.Recorder != nil {
			err := b.deps.Recorder.Append(context.WithoutCancel(ctx), audit.Entry{
				UserID:       actor.UserID,
				UserName:     actor.Name,
				Action:       audit.ActionFileUpload,
				ResourceType: audit.ResourceSensitiveDocument,
				ResourceID:   c.ID,
				AccessType:   audit.AccessWrite,
				Status:       audit.StatusCompleted,
			})
			if err != nil {
				logger.ErrorContext(ctx, "failed to record upload audit entry", "file_id", c.ID, "error", err)
			}
		}

		processed = append(processed, pf)
		b.finishFile(c)
	}

	b.complete(snapshot, processed)

	bctx := context.WithoutCancel(ctx)
	if b.deps.Bus != nil {
		ev := events.NewUploadBatchCompletedEvent(b.projectID, actor.UserID, toCompletedFiles(processed))
		if err := b.deps.Bus.PublishSync(bctx, ev); err != nil {
			logger.ErrorContext(ctx, "batch completion handler failed", "error", err)
		}
	}

	logger.InfoContext(ctx, "upload batch finished", "processed", len(processed), "cancelled", cancelled)

	final := Event{Kind: EventBatchCompleted, Progress: 100, Files: processed}
	if cancelled {
		select {
		case out <- final:
		default:
		}
		return
	}
	emit(final)
}

// process classifies a candidate and checksums its artifact. Only the file
// being processed is ever held in memory, and nothing of it is retained.
func (b *Batch) process(c *Candidate) (ProcessedFile, error) {
	pf := ProcessedFile{
		ID:        c.ID,
		Name:      c.Name,
		MediaType: c.MediaType,
		Size:      c.Size,
		Sensitive: IsSensitive(c.Name),
	}

	var (
		sum []byte
		err error
	)
	if pf.Sensitive {
		sum, err = b.encodedChecksum(c.ref)
		pf.Encoded = err == nil
	} else {
		sum, err = streamChecksum(c.ref)
	}
	if err != nil {
		pf.Failed = true
		return pf, err
	}

	pf.Checksum = hex.EncodeToString(sum)
	return pf, nil
}

// encodedChecksum hashes the encoded form of a sensitive file, never the raw content.
func (b *Batch) encodedChecksum(ref FileRef) ([]byte, error) {
	if b.deps.Encoder == nil {
		return nil, fmt.Errorf("no encoder configured for sensitive file")
	}
	content, err := readAll(ref)
	if err != nil {
		return nil, err
	}
	token, err := b.deps.Encoder.EncodeBytes(content)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	sum := blake3.Sum256([]byte(token))
	return sum[:], nil
}

func streamChecksum(ref FileRef) ([]byte, error) {
	rc, err := ref.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	h := blake3.New()
	if _, err := io.Copy(h, rc); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

func readAll(ref FileRef) ([]byte, error) {
	rc, err := ref.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (b *Batch) stepProgress(ctx context.Context, limiter *rate.Limiter, c *Candidate, emit func(Event) bool) bool {
	for p := 0; p <= 100; p += b.limits.ProgressStep {
		if err := limiter.Wait(ctx); err != nil {
			return false
		}
		b.setProgress(c.ID, p)
		b.publish(ctx, events.NewUploadProgressEvent(b.projectID, c.ID, p))
		if !emit(Event{Kind: EventProgress, FileID: c.ID, FileName: c.Name, Progress: p}) {
			return false
		}
	}
	return true
}

func (b *Batch) publish(ctx context.Context, ev events.Event) {
	if b.deps.Bus == nil {
		return
	}
	if err := b.deps.Bus.Publish(ctx, ev); err != nil {
		b.deps.Logger.WarnContext(ctx, "failed to publish upload event", "event_type", ev.EventType(), "error", err)
	}
}

func (b *Batch) setProgress(id string, p int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.candidates {
		if c.ID == id {
			c.Progress = p
			return
		}
	}
}

func (b *Batch) setErr(err *internal.AppError) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastErr = err
}

// finishFile releases a processed file's storage once nothing else can read it.
func (b *Batch) finishFile(c *Candidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.inFlight, c.ID)
	b.release(c)
}

// complete removes the processed candidates and returns the batch to idle.
// Files added while the submission ran stay staged.
func (b *Batch) complete(snapshot []*Candidate, processed []ProcessedFile) {
	done := make(map[string]bool, len(processed))
	for _, p := range processed {
		done[p.ID] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.candidates[:0]
	staged := make(map[string]bool, len(b.candidates))
	for _, c := range b.candidates {
		if !done[c.ID] {
			c.Progress = 0
			kept = append(kept, c)
			staged[c.ID] = true
		}
	}
	b.candidates = kept

	// removed by the user mid-run and never reached
	for _, c := range snapshot {
		if !done[c.ID] && !staged[c.ID] {
			b.release(c)
		}
	}
	b.inFlight = nil
	b.uploading = false
}

// release must be called with b.mu held.
func (b *Batch) release(c *Candidate) {
	r, ok := c.ref.(Releaser)
	if !ok {
		return
	}
	if err := r.Release(); err != nil {
		b.deps.Logger.Warn("failed to release staged file", "file_id", c.ID, "error", err)
	}
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%dB", n)
	}
	suffixes := []string{"KB", "MB", "GB", "TB"}
	v := float64(n) / unit
	i := 0
	for v >= unit && i < len(suffixes)-1 {
		v /= unit
		i++
	}
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d%s", int64(v), suffixes[i])
	}
	return fmt.Sprintf("%.1f%s", v, suffixes[i])
}
