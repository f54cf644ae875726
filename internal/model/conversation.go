package model

import (
	"encoding/json"
	"time"
)

type ToolCall struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	Result    string          `json:"result,omitempty"`
}

type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	ToolCalls []ToolCall  `json:"toolCalls,omitempty"`
}

// Conversation is one chat thread. Messages is append-only and non-empty
// once persisted.
type Conversation struct {
	ID        string    `json:"id"`
	AccountID string    `json:"accountId"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateConversationParams struct {
	AccountID string
	Title     string
	Messages  []Message
	Tags      []string
}
