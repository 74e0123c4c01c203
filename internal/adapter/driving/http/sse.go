package httphandler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/promptdeck/promptdeck/internal/domain/model"
)

// sseSink relays orchestrator output to the caller as server-sent events.
// Each fragment becomes one event, written and flushed as it arrives so the
// caller sees text while the provider is still generating.
type sseSink struct {
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSESink(w http.ResponseWriter) *sseSink {
	flusher, _ := w.(http.Flusher)
	return &sseSink{w: w, flusher: flusher}
}

// Start commits the SSE response. The chat ID travels in a header so a
// client starting a new chat learns where to send its next turn; events
// themselves carry only text fragments.
func (s *sseSink) Start(chat model.Chat) error {
	header := s.w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Chat-ID", strconv.FormatInt(chat.ID, 10))
	s.w.WriteHeader(http.StatusOK)

	s.started = true
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}

// Fragment writes one event. Fragments containing newlines are split across
// multiple data lines of the same event, per SSE framing.
func (s *sseSink) Fragment(text string) error {
	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	if _, err := fmt.Fprint(s.w, b.String()); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if s.flusher != nil {
		s.flusher.Flush()
	}
	return nil
}
