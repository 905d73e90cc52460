// Package base provides the lifecycle and HTTP plumbing shared by every
// provider variant: lazy client acquisition, API-key validation, the JSON
// round trip, status checking, pacing, and metrics.
package base

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// BaseProvider provides common functionality for all providers
type BaseProvider struct {
	name    string
	config  types.BackendConfig
	logger  *slog.Logger
	limiter *rate.Limiter
	metrics types.MetricsCollector

	mutex  sync.RWMutex
	client *http.Client
}

// NewBaseProvider creates a new base provider. The HTTP client is not created
// until Start or the first request.
func NewBaseProvider(name string, config types.BackendConfig, logger *slog.Logger) *BaseProvider {
	if logger == nil {
		logger = slog.Default()
	}
	config = config.WithDefaults()

	return &BaseProvider{
		name:    name,
		config:  config,
		logger:  logger.With("provider", string(config.Provider)),
		limiter: newClientLimiter(config.RateLimitRPM),
	}
}

func (p *BaseProvider) Name() string {
	return p.name
}

func (p *BaseProvider) Type() types.ProviderType {
	return p.config.Provider
}

// Config returns a copy of the configuration the provider was built with
func (p *BaseProvider) Config() types.BackendConfig {
	return p.config
}

// Logger returns the provider-scoped logger
func (p *BaseProvider) Logger() *slog.Logger {
	return p.logger
}

// SetLogger replaces the logger. Must be called before the provider is used.
func (p *BaseProvider) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	p.logger = logger.With("provider", string(p.config.Provider))
}

// SetMetricsCollector sets the collector notified after every call
func (p *BaseProvider) SetMetricsCollector(collector types.MetricsCollector) {
	p.metrics = collector
}

// Start creates the HTTP client. Calling Start on a started provider is a no-op.
func (p *BaseProvider) Start(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client != nil {
		return nil
	}
	p.client = &http.Client{
		Transport: newTransport(),
		Timeout:   p.config.Timeout,
	}
	p.logger.Info("provider started", "name", p.name, "model", p.config.Model, "base_url", p.config.BaseURL)
	return nil
}

// Stop releases the HTTP client. Stopping a provider that never started is a no-op.
func (p *BaseProvider) Stop() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.client == nil {
		return nil
	}
	p.client.CloseIdleConnections()
	p.client = nil
	p.logger.Info("provider stopped", "name", p.name)
	return nil
}

// Started reports whether the HTTP client exists
func (p *BaseProvider) Started() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.client != nil
}

// httpClient returns the live client, starting the provider if needed
func (p *BaseProvider) httpClient(ctx context.Context) (*http.Client, error) {
	p.mutex.RLock()
	client := p.client
	p.mutex.RUnlock()
	if client != nil {
		return client, nil
	}

	if err := p.Start(ctx); err != nil {
		return nil, err
	}

	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.client, nil
}

// ValidateAPIKey fails when the configuration requires a key and none was resolved
func (p *BaseProvider) ValidateAPIKey() error {
	if p.config.RequiresAPIKey() && p.config.APIKey == "" {
		return types.NewConfigurationError(p.config.Provider,
			"API key required but not found. Set environment variable: "+p.config.APIKeyEnv)
	}
	return nil
}

// RecordCall reports the outcome of one round trip to the metrics collector
func (p *BaseProvider) RecordCall(started time.Time, resp *types.ProviderResponse, err error) {
	latency := time.Since(started)
	if err != nil {
		p.logger.Error("provider call failed", "model", p.config.Model, "latency", latency, "error", err)
	} else {
		p.logger.Debug("provider call succeeded", "model", resp.Model, "latency", latency, "chars", len(resp.Text))
	}

	if p.metrics == nil {
		return
	}

	outcome := "success"
	var tokens *int
	if err != nil {
		outcome = string(types.ErrCodeUnknown)
		for _, code := range []types.ErrorCode{
			types.ErrCodeConfiguration, types.ErrCodeAuthentication, types.ErrCodeRateLimit,
			types.ErrCodeInvalidRequest, types.ErrCodeNotFound, types.ErrCodeServerError,
			types.ErrCodeTimeout, types.ErrCodeNetwork, types.ErrCodeResponseShape,
		} {
			if types.HasCode(err, code) {
				outcome = string(code)
				break
			}
		}
	} else {
		tokens = resp.TokensUsed
	}
	p.metrics.RecordProviderCall(p.config.Provider, p.config.Model, outcome, latency, tokens)
}
