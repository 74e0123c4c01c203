// Package application contains the use-case services sitting between the
// HTTP adapter and the driven ports.
package application

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/promptdeck/promptdeck/internal/cipher"
	"github.com/promptdeck/promptdeck/internal/domain/model"
	"github.com/promptdeck/promptdeck/internal/domain/port/driven"
)

// tokenBytes is the entropy of a session token: 32 bytes, 256 bits.
const tokenBytes = 32

// SessionService issues and resolves credential sessions. It is the only
// component that handles plaintext credentials, and it never logs them.
type SessionService struct {
	sessions  driven.SessionStore
	generator driven.Generator
	cipher    *cipher.Cipher
	logger    *slog.Logger
}

// NewSessionService creates a SessionService with the required dependencies.
func NewSessionService(sessions driven.SessionStore, generator driven.Generator, c *cipher.Cipher, logger *slog.Logger) *SessionService {
	return &SessionService{
		sessions:  sessions,
		generator: generator,
		cipher:    c,
		logger:    logger,
	}
}

// Issue validates rawCredential against the provider, encrypts it, stores a
// new session, and returns the session. Validating at issuance surfaces bad
// credentials immediately instead of deep inside a later stream. Returns
// driven.ErrInvalidCredential if the provider rejects the credential or the
// validation call fails; in that case nothing is persisted.
func (s *SessionService) Issue(ctx context.Context, rawCredential string) (model.Session, error) {
	if rawCredential == "" {
		return model.Session{}, fmt.Errorf("%w: empty credential", driven.ErrInvalidCredential)
	}

	if err := s.generator.Validate(ctx, rawCredential); err != nil {
		return model.Session{}, fmt.Errorf("%w: %s", driven.ErrInvalidCredential, err)
	}

	token, err := newToken()
	if err != nil {
		return model.Session{}, err
	}

	encrypted, err := s.cipher.Encrypt(rawCredential)
	if err != nil {
		return model.Session{}, fmt.Errorf("encrypt credential: %w", err)
	}

	now := time.Now().UTC()
	session := model.Session{
		Token:     token,
		CreatedAt: now,
		LastUsed:  now,
	}
	if err := s.sessions.Create(ctx, session, encrypted); err != nil {
		return model.Session{}, err
	}

	s.logger.Info("session issued", "created_at", session.CreatedAt)
	return session, nil
}

// Resolve returns the plaintext credential for a session token and refreshes
// the session's last_used timestamp. This is the only path by which
// plaintext credentials come back into memory. Returns
// driven.ErrSessionNotFound for unknown tokens and
// driven.ErrCredentialCorrupt when the stored blob fails to decrypt.
func (s *SessionService) Resolve(ctx context.Context, token string) (string, error) {
	_, encrypted, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return "", err
	}

	plaintext, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		if errors.Is(err, cipher.ErrCiphertextInvalid) {
			// Data-integrity signal: either the row was tampered with or
			// the process key changed.
			s.logger.Error("stored credential failed decryption", "error", err)
			return "", fmt.Errorf("%w: %s", driven.ErrCredentialCorrupt, err)
		}
		return "", err
	}

	if err := s.sessions.TouchLastUsed(ctx, token); err != nil {
		return "", err
	}

	return plaintext, nil
}

// newToken returns an opaque URL-safe token with 256 bits of entropy from a
// cryptographically secure source.
func newToken() (string, error) {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
