package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// ErrUnknownProvider is returned when no constructor is registered for a kind
var ErrUnknownProvider = errors.New("unknown provider type")

// Constructor builds a provider from its backend configuration
type Constructor func(types.BackendConfig) types.Provider

// DefaultProviderFactory is the default factory implementation
type DefaultProviderFactory struct {
	providers        map[types.ProviderType]Constructor
	mutex            sync.RWMutex
	metricsCollector types.MetricsCollector
	logger           *slog.Logger
}

// NewProviderFactory creates a factory with no kinds registered
func NewProviderFactory() *DefaultProviderFactory {
	return &DefaultProviderFactory{
		providers: make(map[types.ProviderType]Constructor),
	}
}

// NewDefaultFactory creates a factory with the built-in kinds registered
func NewDefaultFactory() *DefaultProviderFactory {
	f := NewProviderFactory()
	RegisterDefaultProviders(f)
	return f
}

// SetMetricsCollector sets the metrics collector for the factory.
// When set, all providers created by this factory will have the collector configured
func (f *DefaultProviderFactory) SetMetricsCollector(collector types.MetricsCollector) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.metricsCollector = collector
}

// SetLogger sets the logger handed to every provider created afterwards
func (f *DefaultProviderFactory) SetLogger(logger *slog.Logger) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.logger = logger
}

// RegisterProvider registers a new provider type, replacing any existing one
func (f *DefaultProviderFactory) RegisterProvider(providerType types.ProviderType, constructor Constructor) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.providers[providerType] = constructor
}

// CreateProvider creates the provider registered for config.Provider
func (f *DefaultProviderFactory) CreateProvider(config types.BackendConfig) (types.Provider, error) {
	if err := ValidateBackendConfig(config); err != nil {
		return nil, err
	}

	f.mutex.RLock()
	constructor, exists := f.providers[config.Provider]
	collector := f.metricsCollector
	logger := f.logger
	f.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s. Available: %s",
			ErrUnknownProvider, config.Provider, strings.Join(f.supportedNames(), ", "))
	}

	provider := constructor(config)

	if logger != nil {
		if logged, ok := provider.(interface{ SetLogger(*slog.Logger) }); ok {
			logged.SetLogger(logger)
		}
	}
	// If a metrics collector is configured and the provider supports it, set it
	if collector != nil {
		if metricProvider, ok := provider.(interface{ SetMetricsCollector(types.MetricsCollector) }); ok {
			metricProvider.SetMetricsCollector(collector)
		}
	}

	return provider, nil
}

// GetSupportedProviders returns all registered provider types, sorted
func (f *DefaultProviderFactory) GetSupportedProviders() []types.ProviderType {
	names := f.supportedNames()
	providerTypes := make([]types.ProviderType, 0, len(names))
	for _, name := range names {
		providerTypes = append(providerTypes, types.ProviderType(name))
	}
	return providerTypes
}

func (f *DefaultProviderFactory) supportedNames() []string {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	names := make([]string, 0, len(f.providers))
	for providerType := range f.providers {
		names = append(names, string(providerType))
	}
	sort.Strings(names)
	return names
}
