// Package llm talks to the external text-generation collaborator. The
// pipeline depends only on the Client interface; the concrete backend
// is the OpenAI chat API, with a deterministic mock when no credential
// is configured.
package llm

import (
	"context"
	"time"
)

// CompletionRequest is the input for one generation call.
type CompletionRequest struct {
	// SystemPrompt is prepended as a system message.
	SystemPrompt string
	// Prompt is the user message content.
	Prompt string
	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
	// MaxTokens limits the response length. 0 means provider default.
	MaxTokens int
}

// CompletionResponse is the generation output.
type CompletionResponse struct {
	Content string
	Model   string
	Usage   Usage
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the narrow generation interface the enrichment layer uses.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// Options configures client construction.
type Options struct {
	// APIKey selects the real backend; when empty, New returns the
	// documented mock fallback.
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// New returns an OpenAI-backed client, or the mock fallback when no
// API key is configured.
func New(opts Options) Client {
	if opts.APIKey == "" {
		return NewMock(opts.Model)
	}
	return NewOpenAI(opts)
}
