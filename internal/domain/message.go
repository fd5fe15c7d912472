package domain

import "time"

// Role constants for message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a persisted chat message record as returned by the server.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    int64     `json:"chat_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Swipes    []string  `json:"swipes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Instruction is one ordered {title, content} pair attached to a generation
// request (author notes, persona overrides, and similar steering text).
type Instruction struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// GenerateRequest describes one generation call. Immutable once submitted.
// An empty Prompt with Reroll set asks the server to regenerate the last
// assistant message instead of answering new input.
type GenerateRequest struct {
	Prompt       string        `json:"prompt,omitempty"`
	Reroll       bool          `json:"reroll"`
	Instructions []Instruction `json:"instructions,omitempty"`
}
