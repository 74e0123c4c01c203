package driven

import (
	"context"
	"errors"

	"github.com/promptdeck/promptdeck/internal/domain/model"
)

// ErrChatNotFound is returned when a chat ID does not exist.
var ErrChatNotFound = errors.New("chat not found")

// ChatStore persists chats and their message transcripts.
type ChatStore interface {
	// Create inserts a new chat under the given prompt and session and
	// returns it with ID and timestamp set. The prompt must exist.
	Create(ctx context.Context, promptID int64, sessionToken string) (model.Chat, error)

	// GetByID returns a chat with its messages loaded oldest-first.
	// Returns ErrChatNotFound if the ID does not exist.
	GetByID(ctx context.Context, id int64) (*model.Chat, error)

	// ListByPrompt returns all chats for a prompt newest-first, each with
	// its messages loaded oldest-first.
	ListByPrompt(ctx context.Context, promptID int64) ([]model.Chat, error)

	// AppendMessage adds one message to a chat's transcript and returns it
	// with ID and timestamp set. Returns ErrChatNotFound if the chat does
	// not exist.
	AppendMessage(ctx context.Context, chatID int64, role model.Role, content string) (model.Message, error)

	// Delete removes a chat and its messages.
	// Returns ErrChatNotFound if the ID does not exist.
	Delete(ctx context.Context, id int64) error
}
