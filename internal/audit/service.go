package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/google/uuid"
)

var ErrClosed = errors.New("audit: sink closed")

type appendRequest struct {
	ctx    context.Context
	entry  Entry
	result chan error
}

// Service is the audit sink. Every append goes through one writer goroutine
// and becomes exactly one INSERT, so concurrent producers cannot drop entries.
type Service struct {
	repo      RepositoryAPI
	logger    *slog.Logger
	retention time.Duration

	queue chan appendRequest
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewService(repo RepositoryAPI, logger *slog.Logger, queueSize int, retention time.Duration) *Service {
	if queueSize <= 0 {
		queueSize = 256
	}
	if retention <= 0 {
		retention = internal.DefaultAuditRetention
	}
	s := &Service{
		repo:      repo,
		logger:    logger,
		retention: retention,
		queue:     make(chan appendRequest, queueSize),
		done:      make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Service) run() {
	defer close(s.done)
	for req := range s.queue {
		ctx, cancel := internal.WithTimeout(context.WithoutCancel(req.ctx), 5*time.Second)
		err := s.repo.Insert(ctx, ToDataModel(&req.entry))
		cancel()

		if err != nil {
			s.logger.ErrorContext(req.ctx, "failed to persist audit entry",
				"error", err,
				"entry_id", req.entry.ID,
				"action", req.entry.Action)
		} else {
			s.logger.InfoContext(req.ctx, "audit entry recorded",
				"entry_id", req.entry.ID,
				"user_id", req.entry.UserID,
				"action", req.entry.Action,
				"resource_type", req.entry.ResourceType,
				"resource_id", req.entry.ResourceID,
				"access_type", req.entry.AccessType,
				"status", req.entry.Status)
		}
		req.result <- err
	}
}

// Append records entry and waits until it is stored. A missing id or
// timestamp is filled in. If ctx ends first the entry may still be written.
func (s *Service) Append(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	req := appendRequest{ctx: ctx, entry: entry, result: make(chan error, 1)}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return ErrClosed
	}
	select {
	case s.queue <- req:
		s.mu.RUnlock()
	case <-ctx.Done():
		s.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		if err != nil {
			return fmt.Errorf("audit append: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting entries and waits for queued ones to be written.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Entry, error) {
	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list audit entries", "error", err)
		return nil, internal.NewInternalError("failed to list audit entries", err)
	}

	entries := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, FromDataModel(row))
	}
	return entries, nil
}

// Prune deletes entries older than before.
func (s *Service) Prune(ctx context.Context, before time.Time) (int64, error) {
	n, err := s.repo.DeleteBefore(ctx, before)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to prune audit entries", "error", err)
		return 0, internal.NewInternalError("failed to prune audit entries", err)
	}
	s.logger.InfoContext(ctx, "pruned audit entries", "count", n, "before", before)
	return n, nil
}

// PruneExpired applies the configured retention window relative to now.
func (s *Service) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	return s.Prune(ctx, now.Add(-s.retention))
}

func (s *Service) Retention() time.Duration {
	return s.retention
}
