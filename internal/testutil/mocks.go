// Package testutil provides a scriptable Provider for the delegator and
// server test suites.
package testutil

import (
	"context"
	"net/http"
	"sync"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// Call is one recorded invocation of MockProvider.Call
type Call struct {
	System  string
	User    string
	Options types.CallOptions
}

// ConfigurableMockProvider is a Provider whose replies and failures are set
// by the test. It records every call and lifecycle transition.
type ConfigurableMockProvider struct {
	mu sync.RWMutex

	name   string
	config types.BackendConfig

	// Behavior control
	reply    string
	callErr  error
	startErr error

	// Call tracking
	started bool
	starts  int
	calls   []Call
}

// NewConfigurableMockProvider creates a mock that replies with an empty text
func NewConfigurableMockProvider(providerType types.ProviderType, model string) *ConfigurableMockProvider {
	return &ConfigurableMockProvider{
		name: "mock",
		config: types.BackendConfig{
			Provider: providerType,
			BaseURL:  "http://localhost:11434/v1",
			Model:    model,
		}.WithDefaults(),
	}
}

// SetReply configures the text returned by Call
func (m *ConfigurableMockProvider) SetReply(text string) *ConfigurableMockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reply = text
	return m
}

// SetCallError configures Call to fail with err
func (m *ConfigurableMockProvider) SetCallError(err error) *ConfigurableMockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callErr = err
	return m
}

// SetStartError configures Start to fail with err
func (m *ConfigurableMockProvider) SetStartError(err error) *ConfigurableMockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErr = err
	return m
}

// Calls returns a copy of the recorded calls
func (m *ConfigurableMockProvider) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Call(nil), m.calls...)
}

// GetCallCount returns the number of times Call was invoked
func (m *ConfigurableMockProvider) GetCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.calls)
}

// GetStartCallCount returns the number of times Start was invoked
func (m *ConfigurableMockProvider) GetStartCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.starts
}

// Provider interface implementation

func (m *ConfigurableMockProvider) Name() string {
	return m.name
}

func (m *ConfigurableMockProvider) Type() types.ProviderType {
	return m.config.Provider
}

func (m *ConfigurableMockProvider) Config() types.BackendConfig {
	return m.config
}

func (m *ConfigurableMockProvider) BuildHeaders() http.Header {
	return http.Header{"Content-Type": []string{"application/json"}}
}

func (m *ConfigurableMockProvider) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	if m.startErr != nil {
		return m.startErr
	}
	m.started = true
	return nil
}

func (m *ConfigurableMockProvider) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = false
	return nil
}

func (m *ConfigurableMockProvider) Started() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.started
}

func (m *ConfigurableMockProvider) Call(ctx context.Context, systemPrompt, userPrompt string, opts types.CallOptions) (*types.ProviderResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{System: systemPrompt, User: userPrompt, Options: opts})
	if m.callErr != nil {
		return nil, m.callErr
	}
	return &types.ProviderResponse{Text: m.reply, Model: m.config.Model}, nil
}
