package message

import "time"

type Conversation struct {
	ID                int64     `gorm:"primaryKey"`
	OwnerID           string    `gorm:"column:owner_id;not null;index"`
	CounterpartID     string    `gorm:"column:counterpart_id;not null"`
	CounterpartName   string    `gorm:"column:counterpart_name;not null"`
	CounterpartRole   string    `gorm:"column:counterpart_role"`
	CounterpartAvatar string    `gorm:"column:counterpart_avatar"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
	Messages          []Message `gorm:"foreignKey:ConversationID;constraint:OnDelete:CASCADE"`
}

func (Conversation) TableName() string {
	return "conversations"
}

type Message struct {
	ID             int64     `gorm:"primaryKey"`
	ConversationID int64     `gorm:"column:conversation_id;not null;index"`
	SenderID       string    `gorm:"column:sender_id;not null"`
	Text           string    `gorm:"column:text;not null"`
	ParentID       *int64    `gorm:"column:parent_id;index"`
	IsRead         bool      `gorm:"column:is_read;not null"`
	SentAt         time.Time `gorm:"column:sent_at;not null"`
}

func (Message) TableName() string {
	return "messages"
}
