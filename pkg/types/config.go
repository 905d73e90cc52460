package types

import "time"

const (
	DefaultTimeout    = 600 * time.Second
	DefaultMaxTokens  = 8192
	DefaultAPIVersion = "2023-06-01"
)

// BackendConfig describes how to reach one remote text-generation API.
// It is copied into the provider at construction and never changed afterwards.
type BackendConfig struct {
	Provider   ProviderType  `json:"provider"`
	BaseURL    string        `json:"baseUrl"`
	APIKey     string        `json:"-"`
	APIKeyEnv  string        `json:"apiKeyEnv,omitempty"`
	Model      string        `json:"model"`
	APIVersion string        `json:"apiVersion,omitempty"`
	Timeout    time.Duration `json:"timeout"`
	MaxTokens  int           `json:"maxTokens"`

	// RateLimitRPM paces outgoing calls client-side; 0 disables pacing
	RateLimitRPM int `json:"rateLimitRpm,omitempty"`
}

// RequiresAPIKey reports whether the configuration names an environment
// variable for its key, which makes a key mandatory before any call.
func (c BackendConfig) RequiresAPIKey() bool {
	return c.APIKeyEnv != ""
}

// WithDefaults returns a copy with zero timeout and max tokens replaced by
// the defaults.
func (c BackendConfig) WithDefaults() BackendConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	return c
}

// MaskedAPIKey renders the key for log lines, keeping only its last 8 characters.
func (c BackendConfig) MaskedAPIKey() string {
	if c.APIKey == "" {
		return "NONE"
	}
	tail := c.APIKey
	if len(tail) > 8 {
		tail = tail[len(tail)-8:]
	}
	return "********" + tail
}
