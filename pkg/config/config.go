// Package config loads backend profiles from a JSON or YAML file and falls
// back to the legacy environment variables when no file exists.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	// EnvConfigPath names the variable holding the profile file path
	EnvConfigPath = "GLM_DELEGATOR_CONFIG"
	// DefaultConfigPath is used when neither a path nor EnvConfigPath is given
	DefaultConfigPath = "backend.config.json"
	// DefaultActiveProfile is selected when the file has no activeProfile
	DefaultActiveProfile = "glm"
	// EnvProfileName is reported when the config came from the environment
	EnvProfileName = "default"

	EnvBaseURL     = "GLM_BASE_URL"
	EnvModel       = "GLM_MODEL"
	EnvAPIKey      = "GLM_API_KEY"
	EnvAPIKeyAlias = "Z_AI_API_KEY"

	DefaultEnvBaseURL = "https://api.z.ai/api/anthropic"
	DefaultEnvModel   = "glm-4.7"
)

var (
	// ErrProfileNotFound is returned when the selected profile is not in the file
	ErrProfileNotFound = errors.New("profile not found")
	// ErrInvalidConfig is returned for a file that exists but cannot be used
	ErrInvalidConfig = errors.New("invalid config file")
)

// =============================================================================
// Config Structures
// =============================================================================

// File represents the complete profile file
type File struct {
	ActiveProfile string             `json:"activeProfile" yaml:"activeProfile"`
	Profiles      map[string]Profile `json:"profiles" yaml:"profiles"`
}

// Profile represents one named backend
type Profile struct {
	// Provider kind, "openai-compatible" when omitted
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`

	BaseURL string `json:"baseUrl" yaml:"baseUrl"`

	// Name of the environment variable holding the key. Empty means the
	// backend needs no key (local servers).
	APIKeyEnv string `json:"apiKeyEnv,omitempty" yaml:"apiKeyEnv,omitempty"`

	Model      string `json:"model" yaml:"model"`
	APIVersion string `json:"apiVersion,omitempty" yaml:"apiVersion,omitempty"`

	// Timeout in seconds
	Timeout   int `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxTokens int `json:"maxTokens,omitempty" yaml:"maxTokens,omitempty"`

	RateLimitRPM int `json:"rateLimitRpm,omitempty" yaml:"rateLimitRpm,omitempty"`
}

// BackendConfig converts the profile, resolving the API key from the environment
func (p Profile) BackendConfig() types.BackendConfig {
	provider := types.ProviderType(p.Provider)
	if provider == "" {
		provider = types.ProviderTypeOpenAICompatible
	}

	cfg := types.BackendConfig{
		Provider:     provider,
		BaseURL:      p.BaseURL,
		APIKeyEnv:    p.APIKeyEnv,
		APIKey:       ResolveAPIKey(p.APIKeyEnv),
		Model:        p.Model,
		APIVersion:   p.APIVersion,
		Timeout:      time.Duration(p.Timeout) * time.Second,
		MaxTokens:    p.MaxTokens,
		RateLimitRPM: p.RateLimitRPM,
	}
	return cfg.WithDefaults()
}

func (p Profile) validate() error {
	if p.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %d", p.Timeout)
	}
	if p.MaxTokens < 0 {
		return fmt.Errorf("maxTokens must not be negative, got %d", p.MaxTokens)
	}
	if p.RateLimitRPM < 0 {
		return fmt.Errorf("rateLimitRpm must not be negative, got %d", p.RateLimitRPM)
	}
	return nil
}

// =============================================================================
// Configuration Loading
// =============================================================================

// ResolvePath applies the path fallbacks: explicit path, EnvConfigPath, then
// DefaultConfigPath
func ResolvePath(path string) string {
	if path != "" {
		return path
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultConfigPath
}

// Load reads the file at path (after ResolvePath) and returns the active
// profile's config and name. An absent file yields FromEnv and
// EnvProfileName.
func Load(path string) (types.BackendConfig, string, error) {
	return LoadProfile(path, "")
}

// LoadProfile is Load with an explicit profile name overriding activeProfile
func LoadProfile(path, profile string) (types.BackendConfig, string, error) {
	file, err := ReadFile(ResolvePath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return FromEnv(), EnvProfileName, nil
	}
	if err != nil {
		return types.BackendConfig{}, "", err
	}

	name := profile
	if name == "" {
		name = file.ActiveProfile
	}

	entry, ok := file.Profiles[name]
	if !ok {
		return types.BackendConfig{}, "", fmt.Errorf("%w: active profile '%s' not found in config (available: %s)",
			ErrProfileNotFound, name, strings.Join(file.ProfileNames(), ", "))
	}
	if err := entry.validate(); err != nil {
		return types.BackendConfig{}, "", fmt.Errorf("%w: profile '%s': %v", ErrInvalidConfig, name, err)
	}

	return entry.BackendConfig(), name, nil
}

// ReadFile reads and decodes a profile file. Files ending in .yaml or .yml are
// decoded as YAML, everything else as JSON. A missing file is reported with an
// error wrapping fs.ErrNotExist.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		return nil, fmt.Errorf("%w: failed to read %s: %v", ErrInvalidConfig, path, err)
	}

	var file File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %v", ErrInvalidConfig, path, err)
	}

	if file.ActiveProfile == "" {
		file.ActiveProfile = DefaultActiveProfile
	}
	if file.Profiles == nil {
		file.Profiles = map[string]Profile{}
	}
	return &file, nil
}

// ProfileNames returns the profile names, sorted
func (f *File) ProfileNames() []string {
	names := make([]string, 0, len(f.Profiles))
	for name := range f.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListProfiles returns every profile in the file and the active profile name.
// An absent file yields an empty map and an empty name.
func ListProfiles(path string) (map[string]Profile, string, error) {
	file, err := ReadFile(ResolvePath(path))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]Profile{}, "", nil
	}
	if err != nil {
		return nil, "", err
	}
	return file.Profiles, file.ActiveProfile, nil
}

// =============================================================================
// Environment
// =============================================================================

// FromEnv builds the legacy single-backend config from GLM_* variables
func FromEnv() types.BackendConfig {
	return types.BackendConfig{
		Provider:   types.ProviderTypeAnthropicCompatible,
		BaseURL:    getenv(EnvBaseURL, DefaultEnvBaseURL),
		APIKeyEnv:  EnvAPIKey,
		APIKey:     ResolveAPIKey(EnvAPIKey),
		Model:      getenv(EnvModel, DefaultEnvModel),
		APIVersion: types.DefaultAPIVersion,
		Timeout:    types.DefaultTimeout,
		MaxTokens:  types.DefaultMaxTokens,
	}
}

// ResolveAPIKey reads the named variable. GLM_API_KEY falls back to
// Z_AI_API_KEY.
func ResolveAPIKey(envName string) string {
	if envName == "" {
		return ""
	}
	if key := os.Getenv(envName); key != "" {
		return key
	}
	if envName == EnvAPIKey {
		return os.Getenv(EnvAPIKeyAlias)
	}
	return ""
}

func getenv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
