// Package anthropic implements the Anthropic-style messages backend
// ("anthropic-compatible"), used for Anthropic and for GLM/Z.AI endpoints.
package anthropic

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
	messagesPath      = "/messages"
	messagesOperation = "messages"
)

// AnthropicProvider implements types.Provider for Anthropic-style backends
type AnthropicProvider struct {
	*base.BaseProvider
}

// NewAnthropicProvider creates a new Anthropic-style provider. Nothing is
// dialed until the first call.
func NewAnthropicProvider(config types.BackendConfig) *AnthropicProvider {
	config.Provider = types.ProviderTypeAnthropicCompatible
	return &AnthropicProvider{
		BaseProvider: base.NewBaseProvider("anthropic", config, slog.Default()),
	}
}

// APIVersion returns the configured API version or the default one
func (p *AnthropicProvider) APIVersion() string {
	if v := p.Config().APIVersion; v != "" {
		return v
	}
	return types.DefaultAPIVersion
}

// BuildHeaders returns the request headers, with x-api-key when a key is set
func (p *AnthropicProvider) BuildHeaders() http.Header {
	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set("anthropic-version", p.APIVersion())
	if key := p.Config().APIKey; key != "" {
		headers.Set("x-api-key", key)
	}
	return headers
}

func (p *AnthropicProvider) buildRequest(systemPrompt, userPrompt string, opts types.CallOptions) AnthropicRequest {
	cfg := p.Config()
	return AnthropicRequest{
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
		System:    systemPrompt,
		Messages: []AnthropicMessage{
			{Role: "user", Content: userPrompt},
		},
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
	}
}

// Call sends one messages request and normalizes the reply
func (p *AnthropicProvider) Call(ctx context.Context, systemPrompt, userPrompt string, opts types.CallOptions) (resp *types.ProviderResponse, err error) {
	started := time.Now()
	defer func() { p.RecordCall(started, resp, err) }()

	if err := p.ValidateAPIKey(); err != nil {
		return nil, err
	}

	reply, err := p.PostJSON(ctx, base.Request{
		Operation: messagesOperation,
		Path:      messagesPath,
		Headers:   p.BuildHeaders(),
		Body:      p.buildRequest(systemPrompt, userPrompt, opts),
		RequestID: opts.RequestID,
	})
	if err != nil {
		return nil, err
	}

	return p.parseResponse(reply)
}

func (p *AnthropicProvider) parseResponse(reply *base.Reply) (*types.ProviderResponse, error) {
	var response AnthropicResponse
	if err := json.Unmarshal(reply.Body, &response); err != nil {
		return nil, p.shapeError("failed to parse API response").WithOriginalErr(err)
	}
	if len(response.Content) == 0 {
		return nil, p.shapeError("no content blocks in API response")
	}
	if response.Content[0].Text == nil {
		return nil, p.shapeError("first content block has no text")
	}

	model := response.Model
	if model == "" {
		model = p.Config().Model
	}

	// Only report usage when both counters are present
	var tokens *int
	if u := response.Usage; u != nil && u.InputTokens != nil && u.OutputTokens != nil {
		total := *u.InputTokens + *u.OutputTokens
		tokens = &total
	}

	return &types.ProviderResponse{
		Text:       *response.Content[0].Text,
		Raw:        reply.Raw,
		Model:      model,
		TokensUsed: tokens,
	}, nil
}

func (p *AnthropicProvider) shapeError(message string) *types.ProviderError {
	return types.NewResponseShapeError(p.Type(), message).WithOperation(messagesOperation)
}
