package model

import "time"

// Role identifies which side of the conversation produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn in a chat transcript. Within a chat, messages are
// ordered by creation time with insertion order breaking ties.
type Message struct {
	ID        int64
	ChatID    int64
	Role      Role
	Content   string
	CreatedAt time.Time
}
