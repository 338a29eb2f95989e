package agent

import (
	"time"

	"github.com/google/uuid"
)

// Sender identifies which side of the conversation produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Metadata carries optional generation details for an agent message.
type Metadata struct {
	ModelUsed      string `json:"model_used,omitempty"`
	ResponseTimeMs int64  `json:"response_time_ms,omitempty"`
}

// Message is one turn in a conversation. Every message belongs to
// exactly one agent's history and histories are append-only.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	AgentID   string    `json:"agent_id"`
	Metadata  *Metadata `json:"metadata,omitempty"`
}

// NewUserMessage builds a locally originated user turn.
func NewUserMessage(content, agentID string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    SenderUser,
		Timestamp: time.Now().UTC(),
		AgentID:   agentID,
	}
}

// NewAgentMessage builds an agent turn from backend response text.
func NewAgentMessage(content, agentID string) Message {
	return Message{
		ID:        uuid.NewString(),
		Content:   content,
		Sender:    SenderAgent,
		Timestamp: time.Now().UTC(),
		AgentID:   agentID,
	}
}

// WithMetadata returns a copy of the message carrying the metadata.
func (m Message) WithMetadata(md Metadata) Message {
	m.Metadata = &md
	return m
}
