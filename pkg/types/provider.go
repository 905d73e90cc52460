package types

import (
	"context"
	"net/http"
)

// ProviderType represents the API family a backend speaks
type ProviderType string

const (
	ProviderTypeOpenAICompatible    ProviderType = "openai-compatible"
	ProviderTypeAnthropicCompatible ProviderType = "anthropic-compatible"
)

// Provider translates a (system prompt, user prompt) pair into a single
// round trip against one API family and normalizes the reply.
//
// A provider moves through constructed -> started -> stopped. Call starts the
// underlying HTTP client on first use when Start has not been called.
type Provider interface {
	Name() string
	Type() ProviderType
	Config() BackendConfig

	// BuildHeaders returns the outbound headers for every request.
	BuildHeaders() http.Header

	Start(ctx context.Context) error
	Stop() error
	Started() bool

	Call(ctx context.Context, systemPrompt, userPrompt string, opts CallOptions) (*ProviderResponse, error)
}

// CallOptions carries optional sampling parameters for a single call.
// Nil fields are left out of the request body.
type CallOptions struct {
	Temperature *float64
	TopP        *float64

	// RequestID is sent as X-Request-Id when set
	RequestID string
}

// ProviderResponse is the normalized reply of any provider
type ProviderResponse struct {
	Text       string         `json:"text"`
	Raw        map[string]any `json:"raw"`
	Model      string         `json:"model"`
	TokensUsed *int           `json:"tokens_used,omitempty"`
}
