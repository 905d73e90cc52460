package factory

import (
	"github.com/cecil-the-coder/llm-delegator/pkg/providers/anthropic"
	"github.com/cecil-the-coder/llm-delegator/pkg/providers/openai"
	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// RegisterDefaultProviders registers the built-in providers with the factory
func RegisterDefaultProviders(factory *DefaultProviderFactory) {
	factory.RegisterProvider(types.ProviderTypeOpenAICompatible, func(config types.BackendConfig) types.Provider {
		return openai.NewOpenAIProvider(config)
	})

	factory.RegisterProvider(types.ProviderTypeAnthropicCompatible, func(config types.BackendConfig) types.Provider {
		return anthropic.NewAnthropicProvider(config)
	})
}
