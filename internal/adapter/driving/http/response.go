package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/promptdeck/promptdeck/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// RegisterSessionRequest is the JSON body for credential registration.
type RegisterSessionRequest struct {
	APIKey string `json:"api_key"`
}

// SessionResponse is the JSON representation of an issued session. The
// credential never appears here in any form.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at"`
	LastUsed  string `json:"last_used"`
}

// CreatePromptRequest is the JSON body for prompt creation.
type CreatePromptRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
}

// UpdatePromptRequest is the JSON body for a partial prompt edit. Omitted
// fields keep their stored values.
type UpdatePromptRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
}

// PromptResponse is the JSON representation of a prompt template.
type PromptResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Category  string `json:"category"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// ChatResponse is the JSON representation of a chat with its transcript.
type ChatResponse struct {
	ID        int64             `json:"id"`
	PromptID  int64             `json:"prompt_id"`
	CreatedAt string            `json:"created_at"`
	Messages  []MessageResponse `json:"messages"`
}

// MessageResponse is the JSON representation of one chat turn. HTML carries
// the markdown-rendered, sanitized form of Content for direct display.
type MessageResponse struct {
	ID        int64  `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	HTML      string `json:"html"`
	CreatedAt string `json:"created_at"`
}

// ChatStreamRequest is the JSON body for the streaming chat endpoint. The
// session token travels out-of-band in the X-Session-ID header.
type ChatStreamRequest struct {
	Message  string `json:"message"`
	PromptID int64  `json:"prompt_id"`
	ChatID   int64  `json:"chat_id"`
}

// toSessionResponse converts a domain Session to its JSON representation.
func toSessionResponse(session model.Session) SessionResponse {
	return SessionResponse{
		SessionID: session.Token,
		CreatedAt: session.CreatedAt.UTC().Format(time.RFC3339),
		LastUsed:  session.LastUsed.UTC().Format(time.RFC3339),
	}
}

// toPromptResponse converts a domain Prompt to its JSON representation.
func toPromptResponse(prompt model.Prompt) PromptResponse {
	return PromptResponse{
		ID:        prompt.ID,
		Title:     prompt.Title,
		Content:   prompt.Content,
		Category:  prompt.Category,
		CreatedAt: prompt.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: prompt.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// toChatResponse converts a domain Chat to its JSON representation.
func toChatResponse(chat model.Chat) ChatResponse {
	messages := make([]MessageResponse, 0, len(chat.Messages))
	for _, msg := range chat.Messages {
		messages = append(messages, toMessageResponse(msg))
	}

	return ChatResponse{
		ID:        chat.ID,
		PromptID:  chat.PromptID,
		CreatedAt: chat.CreatedAt.UTC().Format(time.RFC3339),
		Messages:  messages,
	}
}

// toMessageResponse converts a domain Message to its JSON representation.
func toMessageResponse(msg model.Message) MessageResponse {
	return MessageResponse{
		ID:        msg.ID,
		Role:      string(msg.Role),
		Content:   msg.Content,
		HTML:      RenderMarkdown(msg.Content),
		CreatedAt: msg.CreatedAt.UTC().Format(time.RFC3339),
	}
}
