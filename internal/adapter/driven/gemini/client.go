// Package gemini implements the Generator port using the generative-ai-go
// library against the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/promptdeck/promptdeck/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Generator = (*Client)(nil)

// Client implements the driven.Generator port. It holds no credential state;
// each call builds a short-lived genai client from the credential supplied by
// the caller, so one Client instance serves every session.
type Client struct {
	model string
	opts  []option.ClientOption // extra options, used by tests to point at a fake endpoint
}

// NewClient creates a Client that generates with the given Gemini model name,
// e.g. "gemini-pro".
func NewClient(model string) *Client {
	return &Client{model: model}
}

// NewClientWithOptions creates a Client with additional genai client options.
// This constructor is intended for testing, allowing injection of an
// httptest server endpoint.
func NewClientWithOptions(model string, opts ...option.ClientOption) *Client {
	return &Client{model: model, opts: opts}
}

// Validate checks the credential with a trivial generation call. Any
// failure, rejection or transport, is returned as-is; the application layer
// decides how to classify it.
func (c *Client) Validate(ctx context.Context, credential string) error {
	client, err := c.newClient(ctx, credential)
	if err != nil {
		return err
	}
	defer client.Close()

	model := client.GenerativeModel(c.model)
	if _, err := model.GenerateContent(ctx, genai.Text("test")); err != nil {
		return fmt.Errorf("credential validation call: %w", err)
	}

	return nil
}

// Stream opens an incremental generation call. The returned stream owns the
// underlying genai client and must be closed by the caller.
func (c *Client) Stream(ctx context.Context, credential, prompt string) (driven.GenerationStream, error) {
	client, err := c.newClient(ctx, credential)
	if err != nil {
		return nil, err
	}

	model := client.GenerativeModel(c.model)
	iter := model.GenerateContentStream(ctx, genai.Text(prompt))

	return &stream{client: client, iter: iter}, nil
}

func (c *Client) newClient(ctx context.Context, credential string) (*genai.Client, error) {
	opts := append([]option.ClientOption{option.WithAPIKey(credential)}, c.opts...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return client, nil
}

// stream adapts the genai response iterator to the GenerationStream port.
type stream struct {
	client *genai.Client
	iter   *genai.GenerateContentResponseIterator
}

// Next returns the text of the next response chunk, io.EOF at the end of the
// stream, or the provider error on mid-stream failure.
func (s *stream) Next() (string, error) {
	resp, err := s.iter.Next()
	if err == iterator.Done {
		return "", io.EOF
	}
	if err != nil {
		return "", fmt.Errorf("generation stream: %w", err)
	}
	return responseText(resp), nil
}

// Close releases the underlying genai client.
func (s *stream) Close() error {
	return s.client.Close()
}

// responseText concatenates the text parts of the first candidate. Chunks
// without text (for example safety-only chunks) yield an empty string.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
