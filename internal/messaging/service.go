package messaging

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/client-portal/internal"
	messageDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/message"
	"github.com/frahmantamala/client-portal/internal/session"
)

type RepositoryAPI interface {
	ListConversations(ownerID, search string) ([]*messageDatamodel.Conversation, error)
	GetConversation(id int64) (*messageDatamodel.Conversation, error)
	CreateConversation(c *messageDatamodel.Conversation) error
	GetMessage(id int64) (*messageDatamodel.Message, error)
	CreateMessage(m *messageDatamodel.Message) error
	MarkRead(conversationID int64, readerID string) (int64, error)
	CountUnread(ownerID string) (int64, error)
}

var ErrNotFound = errors.New("not found")

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

func (s *Service) ListConversations(actor *session.Session, search string) ([]ConversationSummary, error) {
	if !actor.HasPermission(session.PermViewMessages) {
		return nil, internal.ErrPermissionDenied
	}

	rows, err := s.repo.ListConversations(actor.UserID, strings.TrimSpace(search))
	if err != nil {
		s.logger.Error("failed to list conversations", "error", err, "user_id", actor.UserID)
		return nil, internal.NewInternalError("failed to list conversations", err)
	}

	out := make([]ConversationSummary, 0, len(rows))
	for _, row := range rows {
		c := FromDataModel(row)
		summary := ConversationSummary{
			ID:     c.ID,
			With:   c.With,
			Unread: c.UnreadFor(actor.UserID),
		}
		if last := c.Last(); last != nil {
			summary.LastMessage = last.Text
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Service) StartConversation(actor *session.Session, dto StartConversationDTO) (*Conversation, error) {
	if !actor.HasPermission(session.PermViewMessages) {
		return nil, internal.ErrPermissionDenied
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	c := &Conversation{OwnerID: actor.UserID, With: dto.Counterpart}
	row := ToDataModel(c)
	if err := s.repo.CreateConversation(row); err != nil {
		s.logger.Error("failed to create conversation", "error", err, "user_id", actor.UserID)
		return nil, internal.NewInternalError("failed to create conversation", err)
	}
	return FromDataModel(row), nil
}

// conversation loads a conversation owned by actor. Other users' conversations
// are reported as missing.
func (s *Service) conversation(actor *session.Session, id int64) (*Conversation, error) {
	if !actor.HasPermission(session.PermViewMessages) {
		return nil, internal.ErrPermissionDenied
	}

	row, err := s.repo.GetConversation(id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, internal.ErrConversationNotFound
		}
		return nil, internal.NewInternalError("failed to get conversation", err)
	}
	if row.OwnerID != actor.UserID {
		return nil, internal.ErrConversationNotFound
	}
	return FromDataModel(row), nil
}

func (s *Service) GetThread(actor *session.Session, id int64) (*ThreadResponse, error) {
	c, err := s.conversation(actor, id)
	if err != nil {
		return nil, err
	}
	return &ThreadResponse{
		ID:       c.ID,
		With:     c.With,
		Unread:   c.UnreadFor(actor.UserID),
		Messages: Flatten(c.Messages),
	}, nil
}

// Send posts a message. A reply to a reply is attached to the root of its
// thread so threads never nest deeper than one level.
func (s *Service) Send(actor *session.Session, conversationID int64, dto SendMessageDTO) (*Message, error) {
	c, err := s.conversation(actor, conversationID)
	if err != nil {
		return nil, err
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var parentID *int64
	if dto.ParentID != nil {
		parent, err := s.repo.GetMessage(*dto.ParentID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, internal.ErrMessageNotFound
			}
			return nil, internal.NewInternalError("failed to get message", err)
		}
		if parent.ConversationID != c.ID {
			return nil, internal.ErrMessageNotFound
		}
		root := parent.ID
		if parent.ParentID != nil {
			root = *parent.ParentID
		}
		parentID = &root
	}

	m := &Message{
		ConversationID: c.ID,
		SenderID:       actor.UserID,
		Text:           dto.Text,
		ParentID:       parentID,
		SentAt:         s.now().UTC(),
	}
	row := MessageToDataModel(m)
	if err := s.repo.CreateMessage(row); err != nil {
		s.logger.Error("failed to send message", "error", err, "conversation_id", c.ID)
		return nil, internal.NewInternalError("failed to send message", err)
	}

	s.logger.Info("message sent", "conversation_id", c.ID, "message_id", row.ID, "user_id", actor.UserID)
	out := MessageFromDataModel(row)
	return &out, nil
}

func (s *Service) MarkRead(actor *session.Session, conversationID int64) (int64, error) {
	c, err := s.conversation(actor, conversationID)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.MarkRead(c.ID, actor.UserID)
	if err != nil {
		return 0, internal.NewInternalError("failed to mark conversation read", err)
	}
	return n, nil
}

// UnreadTotal feeds the dashboard badge.
func (s *Service) UnreadTotal(actor *session.Session) (int64, error) {
	if !actor.HasPermission(session.PermViewMessages) {
		return 0, nil
	}
	n, err := s.repo.CountUnread(actor.UserID)
	if err != nil {
		return 0, internal.NewInternalError("failed to count unread messages", err)
	}
	return n, nil
}
