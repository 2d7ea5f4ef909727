package postgres

import (
	"errors"
	"strings"

	messageDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/message"
	"github.com/frahmantamala/client-portal/internal/messaging"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func orderedMessages(db *gorm.DB) *gorm.DB {
	return db.Order("sent_at ASC").Order("id ASC")
}

func (r *MessageRepository) ListConversations(ownerID, search string) ([]*messageDatamodel.Conversation, error) {
	var conversations []*messageDatamodel.Conversation

	q := r.db.Preload("Messages", orderedMessages).Where("owner_id = ?", ownerID)
	if search != "" {
		q = q.Where("LOWER(counterpart_name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}

	err := q.Order("updated_at DESC").Order("id ASC").Find(&conversations).Error
	return conversations, err
}

func (r *MessageRepository) GetConversation(id int64) (*messageDatamodel.Conversation, error) {
	var c messageDatamodel.Conversation
	err := r.db.Preload("Messages", orderedMessages).Where("id = ?", id).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, messaging.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MessageRepository) CreateConversation(c *messageDatamodel.Conversation) error {
	return r.db.Omit("Messages").Create(c).Error
}

func (r *MessageRepository) GetMessage(id int64) (*messageDatamodel.Message, error) {
	var m messageDatamodel.Message
	if err := r.db.Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, messaging.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// CreateMessage inserts m and bumps the conversation so it sorts first.
func (r *MessageRepository) CreateMessage(m *messageDatamodel.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		return tx.Model(&messageDatamodel.Conversation{}).
			Where("id = ?", m.ConversationID).
			Update("updated_at", m.SentAt).Error
	})
}

func (r *MessageRepository) MarkRead(conversationID int64, readerID string) (int64, error) {
	res := r.db.Model(&messageDatamodel.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_read = ?", conversationID, readerID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *MessageRepository) CountUnread(ownerID string) (int64, error) {
	var n int64
	err := r.db.Model(&messageDatamodel.Message{}).
		Joins("JOIN conversations ON conversations.id = messages.conversation_id").
		Where("conversations.owner_id = ? AND messages.sender_id <> ? AND messages.is_read = ?", ownerID, ownerID, false).
		Count(&n).Error
	return n, err
}
