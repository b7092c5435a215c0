package domain

import (
	"time"

	"github.com/google/uuid"
)

type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAgent SenderType = "agent"
)

type Message struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	SenderID         uuid.UUID
	SenderType       SenderType
	Content          string
	IsGenerating     bool
	UniqKey          *string
	ReplyToMessageID *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Usage is joined on read for completed agent messages and never stored with the message.
	Usage *UsageRecord
}

// IsCompletedReply reports whether usage may be attached to the message.
func (m *Message) IsCompletedReply() bool {
	return m.SenderType == SenderAgent && !m.IsGenerating
}

// Exchange is the user message together with the agent reply it produced.
type Exchange struct {
	UserMessage  *Message
	AgentMessage *Message
}
