package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/promptdeck/promptdeck/internal/domain/model"
	"github.com/promptdeck/promptdeck/internal/domain/port/driven"
)

// Validation errors surfaced synchronously, before any stream output.
var (
	ErrMissingSession = errors.New("session token required")
	ErrMissingMessage = errors.New("message required")
	ErrMissingPrompt  = errors.New("prompt id required to start a new chat")
)

// ErrProviderStream marks a provider failure opening or reading the
// generation stream. A refused open surfaces before the relay starts and
// maps to a structured response; a mid-stream failure happens after headers
// and possibly fragments have reached the caller, so the HTTP layer can
// only terminate the stream.
var ErrProviderStream = errors.New("provider stream failed")

// StreamRequest carries one chat turn. Exactly one of ChatID (continue an
// existing chat) or PromptID (start a new chat) drives dispatch; ChatID wins
// when both are set.
type StreamRequest struct {
	SessionToken string
	PromptID     int64
	ChatID       int64
	Message      string
}

// StreamSink receives the orchestrated turn. Start is called exactly once,
// after the chat is resolved and the user message persisted but before any
// provider output; Fragment is called per provider chunk in emission order.
// A non-nil error from either aborts the relay.
type StreamSink interface {
	Start(chat model.Chat) error
	Fragment(text string) error
}

// ChatService orchestrates one streaming chat turn: validate, resolve the
// credential, dispatch to a chat, relay provider fragments, persist the
// completed exchange. It holds no per-request state and is safe for
// concurrent use; all cross-request coordination goes through the stores.
type ChatService struct {
	sessions  *SessionService
	prompts   driven.PromptStore
	chats     driven.ChatStore
	generator driven.Generator
	logger    *slog.Logger
}

// NewChatService creates a ChatService with the required dependencies.
func NewChatService(sessions *SessionService, prompts driven.PromptStore, chats driven.ChatStore, generator driven.Generator, logger *slog.Logger) *ChatService {
	return &ChatService{
		sessions:  sessions,
		prompts:   prompts,
		chats:     chats,
		generator: generator,
		logger:    logger,
	}
}

// Stream runs one chat turn against the provider, relaying fragments to sink
// as they arrive.
//
// Errors returned before sink.Start is invoked are structured and carry no
// partial stream: ErrMissingSession, ErrMissingMessage, ErrMissingPrompt,
// driven.ErrSessionNotFound, driven.ErrCredentialCorrupt,
// driven.ErrChatNotFound, driven.ErrPromptNotFound, and ErrProviderStream
// when the provider refuses to open a stream at all. After Start, a provider
// failure truncates the relay (wrapped ErrProviderStream); the persisted
// user message stands and no assistant message is written. If the sink
// rejects a fragment (caller disconnected), accumulated text is discarded.
// A turn where the provider emits zero fragments persists no assistant
// message and is not an error.
func (s *ChatService) Stream(ctx context.Context, req StreamRequest, sink StreamSink) error {
	// Validating.
	if req.SessionToken == "" {
		return ErrMissingSession
	}
	if strings.TrimSpace(req.Message) == "" {
		return ErrMissingMessage
	}

	// Resolving.
	credential, err := s.sessions.Resolve(ctx, req.SessionToken)
	if err != nil {
		return err
	}

	// Dispatching. The prompt template is sent to the provider only on the
	// first turn of a new chat; continuations send the bare user message
	// with no history replay.
	var (
		chat       model.Chat
		fullPrompt string
	)
	switch {
	case req.ChatID != 0:
		existing, err := s.chats.GetByID(ctx, req.ChatID)
		if err != nil {
			return err
		}
		chat = *existing
		fullPrompt = req.Message
	case req.PromptID != 0:
		prompt, err := s.prompts.GetByID(ctx, req.PromptID)
		if err != nil {
			return err
		}
		chat, err = s.chats.Create(ctx, req.PromptID, req.SessionToken)
		if err != nil {
			return err
		}
		fullPrompt = prompt.Content + "\n\nUser: " + req.Message
	default:
		return ErrMissingPrompt
	}

	// The user turn is persisted before the provider call so it survives a
	// failed generation.
	if _, err := s.chats.AppendMessage(ctx, chat.ID, model.RoleUser, req.Message); err != nil {
		return err
	}

	// The provider stream is opened before the relay starts so an outright
	// refusal can still be reported as a structured error.
	stream, err := s.generator.Stream(ctx, credential, fullPrompt)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrProviderStream, err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			s.logger.Error("close generation stream", "error", err)
		}
	}()

	if err := sink.Start(chat); err != nil {
		return fmt.Errorf("start relay: %w", err)
	}

	var accumulated strings.Builder
	for {
		text, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.logger.Error("generation stream truncated", "chat_id", chat.ID, "error", err)
			return fmt.Errorf("%w: %s", ErrProviderStream, err)
		}
		if text == "" {
			continue
		}

		accumulated.WriteString(text)
		if err := sink.Fragment(text); err != nil {
			// Caller is gone; drop the partial response rather than
			// persisting text the user never saw.
			s.logger.Info("relay aborted by caller", "chat_id", chat.ID, "error", err)
			return fmt.Errorf("relay fragment: %w", err)
		}
	}

	// Persisting. Zero emitted fragments leave the turn user-only.
	if accumulated.Len() > 0 {
		if _, err := s.chats.AppendMessage(ctx, chat.ID, model.RoleAssistant, accumulated.String()); err != nil {
			return err
		}
	}

	return nil
}
