package messaging

import (
	"strings"

	"github.com/frahmantamala/client-portal/internal"
	"github.com/frahmantamala/client-portal/internal/core/common/validation"
)

type SendMessageDTO struct {
	Text     string `json:"text"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

func (dto SendMessageDTO) Validate() *internal.AppError {
	return validation.ValidateMessageText(dto.Text)
}

type StartConversationDTO struct {
	Counterpart Counterpart `json:"counterpart"`
}

func (dto *StartConversationDTO) Validate() *internal.AppError {
	dto.Counterpart.ID = strings.TrimSpace(dto.Counterpart.ID)
	dto.Counterpart.Name = strings.TrimSpace(dto.Counterpart.Name)

	v := validation.NewValidator()
	v.Field("counterpart.id", dto.Counterpart.ID).Required()
	v.Field("counterpart.name", dto.Counterpart.Name).Required().MaxLength(200)
	return v.Validate()
}

type ConversationSummary struct {
	ID          int64       `json:"id"`
	With        Counterpart `json:"with"`
	LastMessage string      `json:"last_message"`
	Unread      int64       `json:"unread"`
}

type ConversationsResponse struct {
	Conversations []ConversationSummary `json:"conversations"`
}

type ThreadResponse struct {
	ID       int64         `json:"id"`
	With     Counterpart   `json:"with"`
	Unread   int64         `json:"unread"`
	Messages []ThreadEntry `json:"messages"`
}

type MarkReadResponse struct {
	Marked int64 `json:"marked"`
}
