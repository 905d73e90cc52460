package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

const jsonConfig = `{
  "activeProfile": "openai",
  "profiles": {
    "openai": {
      "provider": "openai-compatible",
      "baseUrl": "https://api.openai.com/v1",
      "apiKeyEnv": "TEST_OPENAI_KEY",
      "model": "gpt-4o",
      "timeout": 120,
      "maxTokens": 4096
    },
    "ollama": {
      "baseUrl": "http://localhost:11434/v1",
      "model": "llama3",
      "rateLimitRpm": 30
    }
  }
}`

const yamlConfig = `
activeProfile: glm
profiles:
  glm:
    provider: anthropic-compatible
    baseUrl: https://api.z.ai/api/anthropic
    apiKeyEnv: GLM_API_KEY
    model: glm-4.7
    apiVersion: "2023-06-01"
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvConfigPath, EnvBaseURL, EnvModel, EnvAPIKey, EnvAPIKeyAlias, "TEST_OPENAI_KEY"} {
		t.Setenv(name, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TEST_OPENAI_KEY", "sk-from-env")
		path := writeFile(t, "backend.config.json", jsonConfig)

		cfg, name, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "openai", name)
		assert.Equal(t, types.ProviderTypeOpenAICompatible, cfg.Provider)
		assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL)
		assert.Equal(t, "TEST_OPENAI_KEY", cfg.APIKeyEnv)
		assert.Equal(t, "sk-from-env", cfg.APIKey)
		assert.Equal(t, "gpt-4o", cfg.Model)
		assert.Equal(t, 120*time.Second, cfg.Timeout)
		assert.Equal(t, 4096, cfg.MaxTokens)
	})

	t.Run("ProfileDefaults", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "backend.config.json", jsonConfig)

		cfg, name, err := LoadProfile(path, "ollama")
		require.NoError(t, err)

		assert.Equal(t, "ollama", name)
		assert.Equal(t, types.ProviderTypeOpenAICompatible, cfg.Provider)
		assert.Equal(t, types.DefaultTimeout, cfg.Timeout)
		assert.Equal(t, types.DefaultMaxTokens, cfg.MaxTokens)
		assert.Equal(t, 30, cfg.RateLimitRPM)
		assert.False(t, cfg.RequiresAPIKey())
		assert.Empty(t, cfg.APIKey)
	})

	t.Run("YAML", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvAPIKeyAlias, "zk-alias")
		path := writeFile(t, "backend.config.yaml", yamlConfig)

		cfg, name, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "glm", name)
		assert.Equal(t, types.ProviderTypeAnthropicCompatible, cfg.Provider)
		assert.Equal(t, "2023-06-01", cfg.APIVersion)
		assert.Equal(t, "zk-alias", cfg.APIKey, "GLM_API_KEY falls back to Z_AI_API_KEY")
	})

	t.Run("PathFromEnvironment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvConfigPath, writeFile(t, "profiles.yml", yamlConfig))

		_, name, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "glm", name)
	})

	t.Run("MissingActiveProfile", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "backend.config.json", `{"activeProfile":"deepseek","profiles":{"openai":{"baseUrl":"https://api.openai.com/v1"}}}`)

		_, _, err := Load(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProfileNotFound)
		assert.Contains(t, err.Error(), "deepseek")
	})

	t.Run("DefaultActiveProfileIsGLM", func(t *testing.T) {
		clearEnv(t)
		path := writeFile(t, "backend.config.json", `{"profiles":{"openai":{"baseUrl":"https://api.openai.com/v1"}}}`)

		_, _, err := Load(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrProfileNotFound)
		assert.Contains(t, err.Error(), "'glm'")
	})

	t.Run("AbsentFileFallsBackToEnvironment", func(t *testing.T) {
		clearEnv(t)
		t.Setenv(EnvAPIKey, "zk-env")
		t.Setenv(EnvModel, "glm-4.5")

		cfg, name, err := Load(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)

		assert.Equal(t, EnvProfileName, name)
		assert.Equal(t, types.ProviderTypeAnthropicCompatible, cfg.Provider)
		assert.Equal(t, DefaultEnvBaseURL, cfg.BaseURL)
		assert.Equal(t, "glm-4.5", cfg.Model)
		assert.Equal(t, "zk-env", cfg.APIKey)
		assert.Equal(t, types.DefaultAPIVersion, cfg.APIVersion)
		assert.Equal(t, 600*time.Second, cfg.Timeout)
		assert.Equal(t, 8192, cfg.MaxTokens)
	})

	t.Run("InvalidFile", func(t *testing.T) {
		clearEnv(t)
		tests := map[string]string{
			"bad.json":      `{"profiles": `,
			"bad.yaml":      "profiles: [unterminated",
			"shape.json":    `{"profiles": ["not", "a", "map"]}`,
			"negative.json": `{"activeProfile":"x","profiles":{"x":{"baseUrl":"http://h","timeout":-1}}}`,
		}
		for name, content := range tests {
			t.Run(name, func(t *testing.T) {
				_, _, err := Load(writeFile(t, name, content))
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
			})
		}
	})
}

func TestListProfiles(t *testing.T) {
	t.Run("FromFile", func(t *testing.T) {
		clearEnv(t)
		profiles, active, err := ListProfiles(writeFile(t, "backend.config.json", jsonConfig))
		require.NoError(t, err)

		assert.Equal(t, "openai", active)
		assert.Len(t, profiles, 2)
		assert.Equal(t, "llama3", profiles["ollama"].Model)
	})

	t.Run("AbsentFile", func(t *testing.T) {
		clearEnv(t)
		profiles, active, err := ListProfiles(filepath.Join(t.TempDir(), "missing.json"))
		require.NoError(t, err)
		assert.Empty(t, profiles)
		assert.Empty(t, active)
	})
}

func TestResolveAPIKey(t *testing.T) {
	clearEnv(t)

	assert.Empty(t, ResolveAPIKey(""))
	assert.Empty(t, ResolveAPIKey("TEST_OPENAI_KEY"))

	t.Setenv(EnvAPIKeyAlias, "alias")
	assert.Equal(t, "alias", ResolveAPIKey(EnvAPIKey))
	assert.Empty(t, ResolveAPIKey("TEST_OPENAI_KEY"), "only GLM_API_KEY has a fallback")

	t.Setenv(EnvAPIKey, "primary")
	assert.Equal(t, "primary", ResolveAPIKey(EnvAPIKey))
}
