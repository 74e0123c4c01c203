package model

import "time"

// Chat is one conversation anchored to a Prompt and a Session. The session
// is referenced by token, not owned: deleting a prompt cascades to its chats
// and their messages, but sessions outlive any chat.
type Chat struct {
	ID           int64
	PromptID     int64
	SessionToken string
	CreatedAt    time.Time

	// Messages is populated oldest-first by read paths that load the full
	// transcript; write paths leave it nil.
	Messages []Message
}
