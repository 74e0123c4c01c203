// Package httphandler is the HTTP driving adapter serving the REST API and
// the SSE chat stream.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/promptdeck/promptdeck/internal/application"
	"github.com/promptdeck/promptdeck/internal/domain/port/driven"
)

// sessionHeader carries the session token on chat requests.
const sessionHeader = "X-Session-ID"

// Handler is the HTTP driving adapter.
type Handler struct {
	promptStore driven.PromptStore
	chatStore   driven.ChatStore
	sessionSvc  *application.SessionService
	chatSvc     *application.ChatService
	logger      *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	promptStore driven.PromptStore,
	chatStore driven.ChatStore,
	sessionSvc *application.SessionService,
	chatSvc *application.ChatService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		promptStore: promptStore,
		chatStore:   chatStore,
		sessionSvc:  sessionSvc,
		chatSvc:     chatSvc,
		logger:      logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("POST /api/v1/sessions", h.RegisterSession)
	mux.HandleFunc("GET /api/v1/prompts", h.ListPrompts)
	mux.HandleFunc("POST /api/v1/prompts", h.CreatePrompt)
	mux.HandleFunc("PUT /api/v1/prompts/{id}", h.UpdatePrompt)
	mux.HandleFunc("DELETE /api/v1/prompts/{id}", h.DeletePrompt)
	mux.HandleFunc("GET /api/v1/prompts/{id}/chats", h.ListChats)
	mux.HandleFunc("DELETE /api/v1/chats/{id}", h.DeleteChat)
	mux.HandleFunc("POST /api/v1/chat/stream", h.StreamChat)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// RegisterSession validates a provider API key and issues a session token.
func (h *Handler) RegisterSession(w http.ResponseWriter, r *http.Request) {
	var req RegisterSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.APIKey == "" {
		writeError(w, http.StatusBadRequest, "api_key is required")
		return
	}

	session, err := h.sessionSvc.Issue(r.Context(), req.APIKey)
	if err != nil {
		if errors.Is(err, driven.ErrInvalidCredential) {
			writeError(w, http.StatusBadRequest, "api key was rejected by the provider")
			return
		}
		h.logger.Error("failed to issue session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toSessionResponse(session))
}

// ListPrompts returns all prompts, optionally filtered by category
// (case-insensitive exact match).
func (h *Handler) ListPrompts(w http.ResponseWriter, r *http.Request) {
	category := strings.TrimSpace(r.URL.Query().Get("category"))

	prompts, err := h.promptStore.ListAll(r.Context(), category)
	if err != nil {
		h.logger.Error("failed to list prompts", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]PromptResponse, 0, len(prompts))
	for _, prompt := range prompts {
		resp = append(resp, toPromptResponse(prompt))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreatePrompt stores a new prompt template.
func (h *Handler) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	var req CreatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Title == "" || req.Content == "" {
		writeError(w, http.StatusBadRequest, "title and content are required")
		return
	}

	prompt, err := h.promptStore.Create(r.Context(), req.Title, req.Content, req.Category)
	if err != nil {
		h.logger.Error("failed to create prompt", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toPromptResponse(prompt))
}

// UpdatePrompt applies a partial edit to a prompt. Omitted fields keep their
// stored values.
func (h *Handler) UpdatePrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdatePromptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prompt, err := h.promptStore.Update(r.Context(), id, driven.PromptUpdate{
		Title:    req.Title,
		Content:  req.Content,
		Category: req.Category,
	})
	if err != nil {
		if errors.Is(err, driven.ErrPromptNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		h.logger.Error("failed to update prompt", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toPromptResponse(*prompt))
}

// DeletePrompt removes a prompt along with its chats and their messages.
func (h *Handler) DeletePrompt(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.promptStore.Delete(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrPromptNotFound) {
			writeError(w, http.StatusNotFound, "prompt not found")
			return
		}
		h.logger.Error("failed to delete prompt", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListChats returns a prompt's chats newest-first with nested transcripts.
// Unknown prompt IDs yield an empty list rather than 404.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	chats, err := h.chatStore.ListByPrompt(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to list chats", "prompt_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]ChatResponse, 0, len(chats))
	for _, chat := range chats {
		resp = append(resp, toChatResponse(chat))
	}

	writeJSON(w, http.StatusOK, resp)
}

// DeleteChat removes a chat and its messages.
func (h *Handler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.chatStore.Delete(r.Context(), id); err != nil {
		if errors.Is(err, driven.ErrChatNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
			return
		}
		h.logger.Error("failed to delete chat", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// StreamChat runs one chat turn and relays provider output to the caller as
// server-sent events. All validation and dispatch errors are returned as
// JSON before the first event; once streaming has begun, a failure simply
// ends the stream.
func (h *Handler) StreamChat(w http.ResponseWriter, r *http.Request) {
	var req ChatStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sink := newSSESink(w)
	err := h.chatSvc.Stream(r.Context(), application.StreamRequest{
		SessionToken: r.Header.Get(sessionHeader),
		PromptID:     req.PromptID,
		ChatID:       req.ChatID,
		Message:      req.Message,
	}, sink)
	if err == nil {
		return
	}

	if sink.started {
		// Headers and possibly fragments are already out; the truncated
		// stream is the only signal the caller gets.
		h.logger.Error("chat stream ended early", "error", err)
		return
	}

	status, message := chatErrorStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("chat stream failed", "error", err)
	}
	writeError(w, status, message)
}

// chatErrorStatus maps pre-stream orchestration errors to client responses.
// Corrupt stored credentials are reported as unauthorized so the caller
// re-registers a key; the integrity signal is logged by the session service.
func chatErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrMissingSession),
		errors.Is(err, driven.ErrSessionNotFound),
		errors.Is(err, driven.ErrCredentialCorrupt):
		return http.StatusUnauthorized, "invalid or expired session, register your API key again"
	case errors.Is(err, application.ErrMissingMessage):
		return http.StatusBadRequest, "message is required"
	case errors.Is(err, application.ErrMissingPrompt):
		return http.StatusBadRequest, "prompt_id is required to start a new chat"
	case errors.Is(err, driven.ErrChatNotFound):
		return http.StatusNotFound, "chat not found"
	case errors.Is(err, driven.ErrPromptNotFound):
		return http.StatusNotFound, "prompt not found"
	case errors.Is(err, application.ErrProviderStream):
		return http.StatusBadGateway, "generation provider unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// pathID parses the {id} path segment, writing a 400 response on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
