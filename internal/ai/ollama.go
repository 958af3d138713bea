package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moral-torture-machine/internal/models"

	"github.com/google/uuid"
	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
)

type ollamaProvider struct {
	client *api.Client
}

var _ Provider = (*ollamaProvider)(nil)

// NewOllamaProvider talks to a local Ollama server through its native API.
func NewOllamaProvider(baseURL string, httpClient *http.Client) (Provider, error) {
	base := strings.TrimSuffix(strings.TrimSuffix(baseURL, "/"), "/v1")
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama URL '%s': %w", base, err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ollamaProvider{client: api.NewClient(parsed, httpClient)}, nil
}

func (p *ollamaProvider) Name() string { return "ollama" }

func (p *ollamaProvider) Complete(ctx context.Context, model string, req Request) (*Completion, error) {
	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}
	stream := false
	options := map[string]any{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	var resp api.ChatResponse
	err := p.client.Chat(ctx, &api.ChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	content := resp.Message.Content
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty response", models.ErrAIBadResponse)
	}

	// Clients expect the OpenAI chat-completion shape.
	out := openai.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []openai.ChatCompletionChoice{{
			Index:        0,
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content},
			FinishReason: openai.FinishReasonStop,
		}},
		Usage: openai.Usage{
			PromptTokens:     resp.PromptEvalCount,
			CompletionTokens: resp.EvalCount,
			TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
		},
	}
	return &Completion{
		Model:    model,
		Content:  content,
		Usage:    Usage{PromptTokens: resp.PromptEvalCount, CompletionTokens: resp.EvalCount},
		Response: out,
	}, nil
}
