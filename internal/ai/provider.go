package ai

import (
	"context"

	openai "github.com/sashabaranov/go-openai"
)

// Message is one chat message.
type Message struct {
	Role    string
	Content string
}

// Request is a provider independent chat request.
type Request struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Usage holds token counts of one completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	Estimated        bool
}

// Completion is the result of a successful chat call. Response keeps the
// OpenAI-compatible body returned to API clients.
type Completion struct {
	Model    string
	Content  string
	Usage    Usage
	Response openai.ChatCompletionResponse
}

// Provider calls a single model.
type Provider interface {
	Name() string
	Complete(ctx context.Context, model string, req Request) (*Completion, error)
}
