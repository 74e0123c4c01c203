package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain/model"
	"github.com/promptdeck/promptdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChatStore = (*ChatRepo)(nil)

// ChatRepo is the SQLite implementation of the ChatStore port interface.
type ChatRepo struct {
	db *DB
}

// NewChatRepo creates a new ChatRepo backed by the given DB.
func NewChatRepo(db *DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// Create inserts a new chat under the given prompt and session. The prompt
// foreign key is checked inside the insert, so a reader can never observe a
// chat without its prompt.
func (r *ChatRepo) Create(ctx context.Context, promptID int64, sessionToken string) (model.Chat, error) {
	now := time.Now().UTC()

	const query = `INSERT INTO chats (prompt_id, session_token, created_at) VALUES (?, ?, ?)`
	result, err := r.db.Writer.ExecContext(ctx, query, promptID, sessionToken, formatTime(now))
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint") {
			// SQLite does not say which of the two keys failed; check the
			// prompt row to tell a missing prompt from a missing session.
			var one int
			lookupErr := r.db.Reader.QueryRowContext(ctx, `SELECT 1 FROM prompts WHERE id = ?`, promptID).Scan(&one)
			if errors.Is(lookupErr, sql.ErrNoRows) {
				return model.Chat{}, driven.ErrPromptNotFound
			}
			return model.Chat{}, driven.ErrSessionNotFound
		}
		return model.Chat{}, fmt.Errorf("create chat: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Chat{}, fmt.Errorf("chat insert id: %w", err)
	}

	return model.Chat{
		ID:           id,
		PromptID:     promptID,
		SessionToken: sessionToken,
		CreatedAt:    now,
	}, nil
}

// GetByID returns a chat with its messages loaded oldest-first.
func (r *ChatRepo) GetByID(ctx context.Context, id int64) (*model.Chat, error) {
	const query = `SELECT id, prompt_id, session_token, created_at FROM chats WHERE id = ?`

	var (
		chat      model.Chat
		createdAt string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(
		&chat.ID, &chat.PromptID, &chat.SessionToken, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %d: %w", id, err)
	}

	if chat.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	if chat.Messages, err = r.messagesForChat(ctx, chat.ID); err != nil {
		return nil, err
	}

	return &chat, nil
}

// ListByPrompt returns all chats for a prompt newest-first, each with its
// messages loaded oldest-first.
func (r *ChatRepo) ListByPrompt(ctx context.Context, promptID int64) ([]model.Chat, error) {
	const query = `SELECT id, prompt_id, session_token, created_at FROM chats WHERE prompt_id = ? ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query, promptID)
	if err != nil {
		return nil, fmt.Errorf("list chats for prompt %d: %w", promptID, err)
	}
	defer rows.Close()

	chats := []model.Chat{}
	for rows.Next() {
		var (
			chat      model.Chat
			createdAt string
		)
		if err := rows.Scan(&chat.ID, &chat.PromptID, &chat.SessionToken, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		if chat.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		chats = append(chats, chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}

	for i := range chats {
		if chats[i].Messages, err = r.messagesForChat(ctx, chats[i].ID); err != nil {
			return nil, err
		}
	}

	return chats, nil
}

// AppendMessage adds one message to a chat's transcript. The single writer
// connection serializes concurrent appends; created_at plus the rowid
// tiebreak make transcript order stable.
func (r *ChatRepo) AppendMessage(ctx context.Context, chatID int64, role model.Role, content string) (model.Message, error) {
	now := time.Now().UTC()

	const query = `INSERT INTO messages (chat_id, role, content, created_at) VALUES (?, ?, ?, ?)`
	result, err := r.db.Writer.ExecContext(ctx, query, chatID, string(role), content, formatTime(now))
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint") {
			return model.Message{}, driven.ErrChatNotFound
		}
		return model.Message{}, fmt.Errorf("append message to chat %d: %w", chatID, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return model.Message{}, fmt.Errorf("message insert id: %w", err)
	}

	return model.Message{
		ID:        id,
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// Delete removes a chat. Foreign keys cascade the delete to its messages.
func (r *ChatRepo) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM chats WHERE id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete chat %d: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return driven.ErrChatNotFound
	}

	return nil
}

// messagesForChat loads a chat's transcript ordered oldest-first.
func (r *ChatRepo) messagesForChat(ctx context.Context, chatID int64) ([]model.Message, error) {
	const query = `SELECT id, chat_id, role, content, created_at FROM messages WHERE chat_id = ? ORDER BY created_at, id`

	rows, err := r.db.Reader.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages for chat %d: %w", chatID, err)
	}
	defer rows.Close()

	messages := []model.Message{}
	for rows.Next() {
		var (
			msg       model.Message
			role      string
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.ChatID, &role, &msg.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = model.Role(role)
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}
