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
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port
// interface. It stores credential blobs exactly as handed to it; encryption
// happens above this layer.
type SessionRepo struct {
	db *DB
}

// NewSessionRepo creates a new SessionRepo backed by the given DB.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a new session row. The token column carries a UNIQUE
// constraint, so a duplicate token surfaces as an insert error.
func (r *SessionRepo) Create(ctx context.Context, session model.Session, encryptedCredential string) error {
	const query = `INSERT INTO sessions (token, encrypted_api_key, created_at, last_used) VALUES (?, ?, ?, ?)`

	_, err := r.db.Writer.ExecContext(ctx, query,
		session.Token,
		encryptedCredential,
		formatTime(session.CreatedAt),
		formatTime(session.LastUsed),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetByToken returns the session and its encrypted credential blob.
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*model.Session, string, error) {
	const query = `SELECT id, token, encrypted_api_key, created_at, last_used FROM sessions WHERE token = ?`

	var (
		session   model.Session
		encrypted string
		createdAt string
		lastUsed  string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, token).Scan(
		&session.ID, &session.Token, &encrypted, &createdAt, &lastUsed,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", driven.ErrSessionNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("get session: %w", err)
	}

	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, "", fmt.Errorf("parse created_at: %w", err)
	}
	if session.LastUsed, err = parseTime(lastUsed); err != nil {
		return nil, "", fmt.Errorf("parse last_used: %w", err)
	}

	return &session, encrypted, nil
}

// TouchLastUsed moves the session's last_used timestamp to the current time.
func (r *SessionRepo) TouchLastUsed(ctx context.Context, token string) error {
	const query = `UPDATE sessions SET last_used = ? WHERE token = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, formatTime(time.Now()), token)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return driven.ErrSessionNotFound
	}

	return nil
}
