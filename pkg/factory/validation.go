package factory

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// ErrInvalidBackendConfig is returned for a configuration no provider can use
var ErrInvalidBackendConfig = errors.New("invalid backend config")

// ValidateBackendConfig checks the fields every provider kind needs
func ValidateBackendConfig(config types.BackendConfig) error {
	if config.Provider == "" {
		return fmt.Errorf("%w: provider type is required", ErrInvalidBackendConfig)
	}
	if config.BaseURL == "" {
		return fmt.Errorf("%w: base URL is required", ErrInvalidBackendConfig)
	}
	u, err := url.Parse(config.BaseURL)
	if err != nil {
		return fmt.Errorf("%w: base URL %q: %v", ErrInvalidBackendConfig, config.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: base URL %q must use http or https", ErrInvalidBackendConfig, config.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: base URL %q has no host", ErrInvalidBackendConfig, config.BaseURL)
	}
	return nil
}
