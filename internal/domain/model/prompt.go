// Package model contains the domain entities shared by all adapters.
package model

import "time"

// DefaultCategory is assigned to prompts created without an explicit category.
const DefaultCategory = "General"

// Prompt is a reusable template: a title, the template body sent to the
// generation provider on the first turn of a chat, and a free-form category
// used for filtering.
type Prompt struct {
	ID        int64
	Title     string
	Content   string
	Category  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
