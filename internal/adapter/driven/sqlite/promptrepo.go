package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain/model"
	"github.com/promptdeck/promptdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PromptStore = (*PromptRepo)(nil)

// PromptRepo is the SQLite implementation of the PromptStore port interface.
type PromptRepo struct {
	db *DB
}

// NewPromptRepo creates a new PromptRepo backed by the given DB.
func NewPromptRepo(db *DB) *PromptRepo {
	return &PromptRepo{db: db}
}

// Create inserts a new prompt. An empty category falls back to the default
// bucket.
func (r *PromptRepo) Create(ctx context.Context, title, content, category string) (model.Prompt, error) {
	if category == "" {
		category = model.DefaultCategory
	}
	now := time.Now().UTC()

	const query = `INSERT INTO prompts (title, content, category, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	result, err := r.db.Writer.ExecContext(ctx, query, title, content, category, formatTime(now), formatTime(now))
	if err != nil {
		return model.Prompt{}, fmt.Errorf("create prompt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Prompt{}, fmt.Errorf("prompt insert id: %w", err)
	}

	return model.Prompt{
		ID:        id,
		Title:     title,
		Content:   content,
		Category:  category,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetByID returns a single prompt or driven.ErrPromptNotFound.
func (r *PromptRepo) GetByID(ctx context.Context, id int64) (*model.Prompt, error) {
	const query = `SELECT id, title, content, category, created_at, updated_at FROM prompts WHERE id = ?`

	prompt, err := scanPrompt(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt %d: %w", id, err)
	}

	return prompt, nil
}

// ListAll returns prompts newest-first. A non-empty category restricts the
// result to a case-insensitive exact category match.
func (r *PromptRepo) ListAll(ctx context.Context, category string) ([]model.Prompt, error) {
	query := `SELECT id, title, content, category, created_at, updated_at FROM prompts ORDER BY created_at DESC, id DESC`
	args := []any{}
	if category != "" {
		query = `SELECT id, title, content, category, created_at, updated_at FROM prompts WHERE LOWER(category) = LOWER(?) ORDER BY created_at DESC, id DESC`
		args = append(args, category)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}
	defer rows.Close()

	prompts := []model.Prompt{}
	for rows.Next() {
		prompt, err := scanPrompt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		prompts = append(prompts, *prompt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}

	return prompts, nil
}

// Update applies a partial edit. Nil fields keep their stored values,
// mirroring how the edit form submits only changed fields.
func (r *PromptRepo) Update(ctx context.Context, id int64, update driven.PromptUpdate) (*model.Prompt, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		existing.Title = *update.Title
	}
	if update.Content != nil {
		existing.Content = *update.Content
	}
	if update.Category != nil {
		existing.Category = *update.Category
	}
	existing.UpdatedAt = time.Now().UTC()

	const query = `UPDATE prompts SET title = ?, content = ?, category = ?, updated_at = ? WHERE id = ?`
	_, err = r.db.Writer.ExecContext(ctx, query,
		existing.Title, existing.Content, existing.Category, formatTime(existing.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update prompt %d: %w", id, err)
	}

	return existing, nil
}

// Delete removes a prompt. Foreign keys cascade the delete to the prompt's
// chats and their messages in the same implicit transaction.
func (r *PromptRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM prompts WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete prompt %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return driven.ErrPromptNotFound
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scan helpers.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrompt(row rowScanner) (*model.Prompt, error) {
	var (
		prompt    model.Prompt
		createdAt string
		updatedAt string
	)
	if err := row.Scan(&prompt.ID, &prompt.Title, &prompt.Content, &prompt.Category, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if prompt.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if prompt.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	return &prompt, nil
}
