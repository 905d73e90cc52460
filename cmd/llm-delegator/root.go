package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/cecil-the-coder/llm-delegator/pkg/config"
	"github.com/cecil-the-coder/llm-delegator/pkg/delegator"
	"github.com/cecil-the-coder/llm-delegator/pkg/factory"
	"github.com/cecil-the-coder/llm-delegator/pkg/metrics"
	"github.com/cecil-the-coder/llm-delegator/pkg/server"
	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// Local servers that are allowed to run without an API key
var localBaseURLs = []string{
	"http://localhost:11434/v1",
	"http://localhost:1234/v1",
	"http://localhost:8000/v1",
}

var errMissingAPIKey = errors.New("API key required but not provided")

const metricsShutdownTimeout = 5 * time.Second

type options struct {
	provider     string
	baseURL      string
	apiKey       string
	model        string
	apiVersion   string
	timeout      int
	maxTokens    int
	rateLimitRPM int

	configPath  string
	profile     string
	toolPrefix  string
	metricsAddr string
	debug       bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "llm-delegator",
		Short: "Expert subagents over MCP, backed by any LLM provider",
		Long: `llm-delegator speaks MCP over stdin/stdout and exposes five expert tools
(architect, plan reviewer, scope analyst, code reviewer, security analyst)
that forward each task to an OpenAI-compatible or Anthropic-compatible API.

Examples:
  llm-delegator
  llm-delegator -p openai-compatible -u http://localhost:11434/v1 -m llama3.1
  llm-delegator -c backend.config.yaml --profile ollama`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}
	bindFlags(root, opts)

	root.AddCommand(newProfilesCmd(opts), newVersionCmd())
	return root
}

func bindFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.provider, "provider", "p", string(types.ProviderTypeAnthropicCompatible),
		"Provider kind (anthropic-compatible, openai-compatible)")
	flags.StringVarP(&opts.baseURL, "base-url", "u", config.DefaultEnvBaseURL, "API base URL")
	flags.StringVarP(&opts.apiKey, "api-key", "k", config.ResolveAPIKey(config.EnvAPIKey),
		"API key (default from $GLM_API_KEY or $Z_AI_API_KEY)")
	flags.StringVarP(&opts.model, "model", "m", config.DefaultEnvModel, "Model name")
	flags.StringVar(&opts.apiVersion, "api-version", types.DefaultAPIVersion, "API version header (anthropic-compatible)")
	flags.IntVar(&opts.timeout, "timeout", int(types.DefaultTimeout/time.Second), "Request timeout in seconds")
	flags.IntVar(&opts.maxTokens, "max-tokens", types.DefaultMaxTokens, "Maximum tokens in a reply")
	flags.IntVar(&opts.rateLimitRPM, "rate-limit-rpm", 0, "Client-side request pacing in requests per minute (0 = off)")
	flags.StringVar(&opts.toolPrefix, "tool-prefix", delegator.DefaultToolPrefix, "Prefix for tool names")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address (empty = off)")
	flags.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&opts.configPath, "config", "c", "", "Profile file, JSON or YAML (also $GLM_DELEGATOR_CONFIG)")
	persistent.StringVar(&opts.profile, "profile", "", "Profile to use instead of activeProfile")
}

func (o *options) profileMode() bool {
	return o.configPath != "" || o.profile != "" || os.Getenv(config.EnvConfigPath) != ""
}

func (o *options) flagConfig() types.BackendConfig {
	cfg := types.BackendConfig{
		Provider:     types.ProviderType(o.provider),
		BaseURL:      o.baseURL,
		APIKey:       o.apiKey,
		Model:        o.model,
		APIVersion:   o.apiVersion,
		Timeout:      time.Duration(o.timeout) * time.Second,
		MaxTokens:    o.maxTokens,
		RateLimitRPM: o.rateLimitRPM,
	}
	return cfg.WithDefaults()
}

// buildConfig returns the backend config and the profile it came from. In
// profile mode, flags set on the command line win over profile values.
func buildConfig(cmd *cobra.Command, opts *options) (types.BackendConfig, string, error) {
	if !opts.profileMode() {
		return opts.flagConfig(), "flags", nil
	}

	cfg, name, err := config.LoadProfile(opts.configPath, opts.profile)
	if err != nil {
		return types.BackendConfig{}, "", err
	}

	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = types.ProviderType(opts.provider)
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = opts.baseURL
	}
	if flags.Changed("api-key") {
		cfg.APIKey = opts.apiKey
	}
	if flags.Changed("model") {
		cfg.Model = opts.model
	}
	if flags.Changed("api-version") {
		cfg.APIVersion = opts.apiVersion
	}
	if flags.Changed("timeout") {
		cfg.Timeout = time.Duration(opts.timeout) * time.Second
	}
	if flags.Changed("max-tokens") {
		cfg.MaxTokens = opts.maxTokens
	}
	if flags.Changed("rate-limit-rpm") {
		cfg.RateLimitRPM = opts.rateLimitRPM
	}
	return cfg.WithDefaults(), name, nil
}

func requireAPIKey(cfg types.BackendConfig) error {
	if cfg.APIKey != "" || slices.Contains(localBaseURLs, cfg.BaseURL) {
		return nil
	}
	env := cfg.APIKeyEnv
	if env == "" {
		env = config.EnvAPIKey
	}
	return fmt.Errorf("%w for %s: use --api-key or set %s", errMissingAPIKey, cfg.BaseURL, env)
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func run(cmd *cobra.Command, opts *options) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.debug)

	cfg, profile, err := buildConfig(cmd, opts)
	if err != nil {
		return err
	}

	logger.Info("LLM delegator initialized",
		"profile", profile,
		"provider", cfg.Provider,
		"base_url", cfg.BaseURL,
		"model", cfg.Model,
		"api_key", cfg.MaskedAPIKey())

	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	collector := metrics.NewCollector()
	providers := factory.NewDefaultFactory()
	providers.SetLogger(logger)
	providers.SetMetricsCollector(collector)

	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := provider.Stop(); err != nil {
			logger.Warn("failed to stop provider", "error", err)
		}
		logger.Info("provider closed")
	}()

	d, err := delegator.New(provider, delegator.WithToolPrefix(opts.toolPrefix), delegator.WithLogger(logger))
	if err != nil {
		return err
	}

	srv, err := server.New(d,
		server.WithLogger(logger),
		server.WithRecorder(collector),
		server.WithVersion(version))
	if err != nil {
		return err
	}

	if opts.metricsAddr != "" {
		metricsServer := metrics.NewServer(collector, provider, version, logger)
		if err := metricsServer.Start(opts.metricsAddr); err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
		}()
	}

	logger.Info("LLM delegator starting", "tools", len(d.Tools()), "tool_prefix", opts.toolPrefix)
	err = srv.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	if errors.Is(err, context.Canceled) {
		logger.Info("shutting down")
		return nil
	}
	return err
}
