package model

import "time"

// Session ties an opaque token to one stored provider credential.
// The credential itself is encrypted at rest and never appears on this
// struct; only the adapter layer handles ciphertext.
type Session struct {
	ID        int64
	Token     string
	CreatedAt time.Time
	LastUsed  time.Time
}
