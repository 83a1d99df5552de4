package ports

import "context"

// CompletionRequest is a single chat-style prompt for the LLM provider.
type CompletionRequest struct {
	System      string
	User        string
	JSON        bool    // Ask the provider for a JSON object response
	Temperature float64 // 0 uses the provider default
	MaxTokens   int
}

// LLMClient sends prompts to a large-language-model completion service.
type LLMClient interface {
	// Complete returns the raw text of the first completion choice.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
