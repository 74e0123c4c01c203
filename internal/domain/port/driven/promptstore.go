package driven

import (
	"context"
	"errors"

	"github.com/promptdeck/promptdeck/internal/domain/model"
)

// ErrPromptNotFound is returned when a prompt ID does not exist.
var ErrPromptNotFound = errors.New("prompt not found")

// PromptUpdate carries a partial prompt edit. Nil fields are left unchanged.
type PromptUpdate struct {
	Title    *string
	Content  *string
	Category *string
}

// PromptStore persists prompt templates.
type PromptStore interface {
	// Create inserts a new prompt and returns it with ID and timestamps set.
	Create(ctx context.Context, title, content, category string) (model.Prompt, error)

	// GetByID returns a single prompt or ErrPromptNotFound.
	GetByID(ctx context.Context, id int64) (*model.Prompt, error)

	// ListAll returns prompts newest-first. A non-empty category restricts
	// the result to a case-insensitive exact category match.
	ListAll(ctx context.Context, category string) ([]model.Prompt, error)

	// Update applies a partial edit and returns the updated prompt.
	// Returns ErrPromptNotFound if the ID does not exist.
	Update(ctx context.Context, id int64, update PromptUpdate) (*model.Prompt, error)

	// Delete removes a prompt along with all of its chats and their
	// messages. Returns ErrPromptNotFound if the ID does not exist.
	Delete(ctx context.Context, id int64) error
}
