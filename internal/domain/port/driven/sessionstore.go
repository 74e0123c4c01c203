// Package driven defines the outbound ports the application core depends on,
// together with the sentinel errors adapters translate store and provider
// failures into.
package driven

import (
	"context"
	"errors"

	"github.com/promptdeck/promptdeck/internal/domain/model"
)

// ErrSessionNotFound is returned when no session matches the supplied token.
var ErrSessionNotFound = errors.New("session not found")

// ErrCredentialCorrupt is returned when a stored credential blob cannot be
// decrypted with the current process key. It means the row was tampered with
// or the key changed; the caller must register the credential again.
var ErrCredentialCorrupt = errors.New("stored credential is corrupt")

// SessionStore persists credential sessions. Values crossing this boundary
// are ciphertext; encryption and decryption happen in the application layer
// so that no adapter ever sees a plaintext credential and a raw query can
// never leak one.
type SessionStore interface {
	// Create inserts a new session row with the given encrypted credential.
	// The token must be unique; a duplicate insert is an error.
	Create(ctx context.Context, session model.Session, encryptedCredential string) error

	// GetByToken returns the session and its encrypted credential blob.
	// Returns ErrSessionNotFound if the token is unknown.
	GetByToken(ctx context.Context, token string) (*model.Session, string, error)

	// TouchLastUsed moves the session's last_used timestamp to now.
	TouchLastUsed(ctx context.Context, token string) error
}
