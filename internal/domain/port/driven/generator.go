package driven

import (
	"context"
	"errors"
)

// ErrInvalidCredential is returned when the generation provider rejects a
// credential during registration.
var ErrInvalidCredential = errors.New("provider rejected credential")

// Generator is the driven port for the external text-generation provider.
// Credentials are passed per call; the adapter holds no long-lived
// authenticated state, which keeps one adapter instance safe to share across
// sessions with different keys.
type Generator interface {
	// Validate checks a credential with a live round-trip to the provider.
	// A rejection or transport failure is an error; nil means the
	// credential produced a successful generation call.
	Validate(ctx context.Context, credential string) error

	// Stream opens an incremental generation call for the given prompt.
	// Fragments must be consumed promptly; the provider paces them.
	Stream(ctx context.Context, credential, prompt string) (GenerationStream, error)
}

// GenerationStream is a single-pass sequence of text fragments from one
// generation call.
type GenerationStream interface {
	// Next returns the next text fragment. It returns io.EOF after the
	// final fragment, or any other error on mid-stream provider failure.
	Next() (string, error)

	// Close releases the underlying provider connection. Safe to call
	// after Next has returned an error.
	Close() error
}
