package messaging

import (
	"slices"
	"sort"
	"time"

	messageDatamodel "github.com/frahmantamala/client-portal/internal/core/datamodel/message"
)

type Counterpart struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	ParentID       *int64    `json:"parent_id,omitempty"`
	Read           bool      `json:"read"`
	SentAt         time.Time `json:"sent_at"`
}

type Conversation struct {
	ID        int64       `json:"id"`
	OwnerID   string      `json:"-"`
	With      Counterpart `json:"with"`
	Messages  []Message   `json:"-"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// ThreadEntry is a message placed in display order with its nesting depth.
type ThreadEntry struct {
	Message
	Depth int `json:"depth"`
}

// UnreadFor counts messages addressed to readerID that are still unread.
func (c *Conversation) UnreadFor(readerID string) int64 {
	var n int64
	for _, m := range c.Messages {
		if !m.Read && m.SenderID != readerID {
			n++
		}
	}
	return n
}

// Last returns the most recent message, or nil for an empty conversation.
func (c *Conversation) Last() *Message {
	var last *Message
	for i := range c.Messages {
		if last == nil || !c.Messages[i].SentAt.Before(last.SentAt) {
			last = &c.Messages[i]
		}
	}
	return last
}

// Flatten orders messages as threads: each root followed by its replies,
// depth-first, oldest first at every level. Replies whose parent is missing
// are promoted to roots, and so is the oldest message of any parent cycle.
func Flatten(messages []Message) []ThreadEntry {
	byID := make(map[int64]Message, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
	}

	parent := make(map[int64]int64, len(messages))
	for _, m := range messages {
		if m.ParentID == nil || *m.ParentID == m.ID {
			continue
		}
		if _, ok := byID[*m.ParentID]; ok {
			parent[m.ID] = *m.ParentID
		}
	}
	breakCycles(parent, byID)

	children := make(map[int64][]Message)
	var roots []Message
	for _, m := range messages {
		if p, ok := parent[m.ID]; ok {
			children[p] = append(children[p], m)
			continue
		}
		roots = append(roots, m)
	}

	byTime := func(list []Message) {
		sort.SliceStable(list, func(i, j int) bool {
			return before(list[i], list[j])
		})
	}
	byTime(roots)
	for k := range children {
		byTime(children[k])
	}

	type frame struct {
		msg   Message
		depth int
	}

	out := make([]ThreadEntry, 0, len(messages))
	visited := make(map[int64]bool, len(messages))
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{msg: roots[i]})
	}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[top.msg.ID] {
			continue
		}
		visited[top.msg.ID] = true
		out = append(out, ThreadEntry{Message: top.msg, Depth: top.depth})

		kids := children[top.msg.ID]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, frame{msg: kids[i], depth: top.depth + 1})
		}
	}
	return out
}

// breakCycles cuts the parent link of the oldest message in every cycle.
func breakCycles(parent map[int64]int64, byID map[int64]Message) {
	const (
		walking = 1
		settled = 2
	)
	state := make(map[int64]int, len(byID))
	for start := range byID {
		var path []int64
		loop := -1
		for id := start; state[id] == 0; {
			state[id] = walking
			path = append(path, id)
			next, ok := parent[id]
			if !ok {
				break
			}
			if state[next] == walking {
				loop = slices.Index(path, next)
				break
			}
			id = next
		}

		if loop >= 0 {
			oldest := path[loop]
			for _, c := range path[loop+1:] {
				if before(byID[c], byID[oldest]) {
					oldest = c
				}
			}
			delete(parent, oldest)
		}
		for _, p := range path {
			state[p] = settled
		}
	}
}

func before(a, b Message) bool {
	if a.SentAt.Equal(b.SentAt) {
		return a.ID < b.ID
	}
	return a.SentAt.Before(b.SentAt)
}

func MessageFromDataModel(m *messageDatamodel.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		ParentID:       m.ParentID,
		Read:           m.IsRead,
		SentAt:         m.SentAt,
	}
}

func MessageToDataModel(m *Message) *messageDatamodel.Message {
	return &messageDatamodel.Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Text:           m.Text,
		ParentID:       m.ParentID,
		IsRead:         m.Read,
		SentAt:         m.SentAt,
	}
}

func FromDataModel(c *messageDatamodel.Conversation) *Conversation {
	msgs := make([]Message, 0, len(c.Messages))
	for i := range c.Messages {
		msgs = append(msgs, MessageFromDataModel(&c.Messages[i]))
	}
	return &Conversation{
		ID:      c.ID,
		OwnerID: c.OwnerID,
		With: Counterpart{
			ID:     c.CounterpartID,
			Name:   c.CounterpartName,
			Role:   c.CounterpartRole,
			Avatar: c.CounterpartAvatar,
		},
		Messages:  msgs,
		UpdatedAt: c.UpdatedAt,
	}
}

func ToDataModel(c *Conversation) *messageDatamodel.Conversation {
	return &messageDatamodel.Conversation{
		ID:                c.ID,
		OwnerID:           c.OwnerID,
		CounterpartID:     c.With.ID,
		CounterpartName:   c.With.Name,
		CounterpartRole:   c.With.Role,
		CounterpartAvatar: c.With.Avatar,
		UpdatedAt:         c.UpdatedAt,
	}
}
