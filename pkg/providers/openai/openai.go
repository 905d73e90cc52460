// Package openai implements the OpenAI-style chat completions backend
// ("openai-compatible"), used for OpenAI itself and for local servers such
// as Ollama, LM Studio, and vLLM.
package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cecil-the-coder/llm-delegator/pkg/providers/base"
	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

const (
	chatCompletionsPath      = "/chat/completions"
	chatCompletionsOperation = "chat_completions"
)

// OpenAIRequest represents a request to the chat completions API
type OpenAIRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
}

// OpenAIMessage represents a message in the chat completions API
type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIResponse represents the fields read from a chat completions reply
type OpenAIResponse struct {
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   *OpenAIUsage   `json:"usage"`
}

// OpenAIChoice represents one completion choice
type OpenAIChoice struct {
	Message *OpenAIReplyMessage `json:"message"`
}

// OpenAIReplyMessage is the assistant message of a choice
type OpenAIReplyMessage struct {
	Content          *string `json:"content"`
	Reasoning        string  `json:"reasoning,omitempty"`         // GLM, OpenCode/Zen
	ReasoningContent string  `json:"reasoning_content,omitempty"` // vLLM
}

// OpenAIUsage represents token accounting
type OpenAIUsage struct {
	TotalTokens *int `json:"total_tokens"`
}

// OpenAIProvider implements types.Provider for OpenAI-style backends
type OpenAIProvider struct {
	*base.BaseProvider
}

// NewOpenAIProvider creates a new OpenAI-style provider. Nothing is dialed
// until the first call.
func NewOpenAIProvider(config types.BackendConfig) *OpenAIProvider {
	config.Provider = types.ProviderTypeOpenAICompatible
	return &OpenAIProvider{
		BaseProvider: base.NewBaseProvider("openai", config, slog.Default()),
	}
}

// BuildHeaders returns the request headers, with bearer auth when a key is set
func (p *OpenAIProvider) BuildHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	if key := p.Config().APIKey; key != "" {
		headers.Set("Authorization", "Bearer "+key)
	}
	return headers
}

func (p *OpenAIProvider) buildRequest(systemPrompt, userPrompt string, opts types.CallOptions) OpenAIRequest {
	cfg := p.Config()
	return OpenAIRequest{
		Model: cfg.Model,
		Messages: []OpenAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		MaxTokens:   cfg.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
}

// Call sends one chat completion and normalizes the reply
func (p *OpenAIProvider) Call(ctx context.Context, systemPrompt, userPrompt string, opts types.CallOptions) (resp *types.ProviderResponse, err error) {
	started := time.Now()
	defer func() { p.RecordCall(started, resp, err) }()

	if err := p.ValidateAPIKey(); err != nil {
		return nil, err
	}

	reply, err := p.PostJSON(ctx, base.Request{
		Operation: chatCompletionsOperation,
		Path:      chatCompletionsPath,
		Headers:   p.BuildHeaders(),
		Body:      p.buildRequest(systemPrompt, userPrompt, opts),
		RequestID: opts.RequestID,
	})
	if err != nil {
		return nil, err
	}

	return p.parseResponse(reply)
}

func (p *OpenAIProvider) parseResponse(reply *base.Reply) (*types.ProviderResponse, error) {
	var response OpenAIResponse
	if err := json.Unmarshal(reply.Body, &response); err != nil {
		return nil, p.shapeError("failed to parse API response").WithOriginalErr(err)
	}
	if len(response.Choices) == 0 {
		return nil, p.shapeError("no choices in API response")
	}

	message := response.Choices[0].Message
	if message == nil {
		return nil, p.shapeError("choice has no message")
	}

	// Reasoning models sometimes leave content empty and answer in a reasoning field
	text := ""
	if message.Content != nil {
		text = *message.Content
	}
	if text == "" || text == "\n" {
		if message.ReasoningContent != "" {
			text = message.ReasoningContent
		} else if message.Reasoning != "" {
			text = message.Reasoning
		} else if message.Content == nil {
			return nil, p.shapeError("message has no content")
		}
	}

	model := response.Model
	if model == "" {
		model = p.Config().Model
	}

	var tokens *int
	if response.Usage != nil {
		tokens = response.Usage.TotalTokens
	}

	return &types.ProviderResponse{
		Text:       text,
		Raw:        reply.Raw,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}

func (p *OpenAIProvider) shapeError(message string) *types.ProviderError {
	return types.NewResponseShapeError(p.Type(), message).WithOperation(chatCompletionsOperation)
}
