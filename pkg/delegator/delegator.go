// Package delegator turns MCP tool calls into expert invocations against the
// active provider.
package delegator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/cecil-the-coder/llm-delegator/pkg/experts"
	"github.com/cecil-the-coder/llm-delegator/pkg/types"
	"github.com/cecil-the-coder/llm-delegator/pkg/utils"
)

// DefaultToolPrefix is prepended (with "_") to every expert name
const DefaultToolPrefix = "glm"

var (
	// ErrUnknownTool is returned for a tool name without the delegator's prefix
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when tool arguments have the wrong types
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Arguments are the decoded inputs of one tool call
type Arguments struct {
	Task    string   `json:"task"`
	Mode    string   `json:"mode"`
	Context string   `json:"context"`
	Files   []string `json:"files"`
}

// Delegator owns the active provider and exposes one tool per expert
type Delegator struct {
	provider types.Provider
	prefix   string
	logger   *slog.Logger
	newID    func() string
}

// Option configures a Delegator
type Option func(*Delegator)

// WithToolPrefix replaces DefaultToolPrefix
func WithToolPrefix(prefix string) Option {
	return func(d *Delegator) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithLogger sets the logger; nil keeps slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(d *Delegator) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a delegator for provider
func New(provider types.Provider, opts ...Option) (*Delegator, error) {
	if provider == nil {
		return nil, fmt.Errorf("delegator requires a provider")
	}
	d := &Delegator{
		provider: provider,
		prefix:   DefaultToolPrefix,
		logger:   slog.Default(),
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Provider returns the active provider
func (d *Delegator) Provider() types.Provider {
	return d.provider
}

// ToolName returns the tool name for an expert
func (d *Delegator) ToolName(expert string) string {
	return d.prefix + "_" + expert
}

// Tools returns one descriptor per expert, in expert order
func (d *Delegator) Tools() []mcp.Tool {
	model := d.provider.Config().Model
	all := experts.All()
	tools := make([]mcp.Tool, 0, len(all))

	for _, e := range all {
		tools = append(tools, mcp.NewTool(d.ToolName(e.Name),
			mcp.WithDescription(fmt.Sprintf("Delegate to the %s expert (%s)", e.Title(), model)),
			mcp.WithString("task",
				mcp.Required(),
				mcp.Description("The task or question for the expert"),
			),
			mcp.WithString("mode",
				mcp.Enum(experts.ModeAdvisory, experts.ModeImplementation),
				mcp.Description("Advisory = analysis only, Implementation = make changes"),
				mcp.DefaultString(experts.ModeAdvisory),
			),
			mcp.WithString("context",
				mcp.Description("Additional context about the codebase"),
				mcp.DefaultString(""),
			),
			mcp.WithArray("files",
				mcp.WithStringItems(),
				mcp.Description("Relevant files to include"),
				mcp.DefaultArray([]string{}),
			),
		))
	}
	return tools
}

// DecodeArguments reads tool arguments, applying the schema defaults
func DecodeArguments(raw map[string]any) (Arguments, error) {
	var args Arguments
	if len(raw) > 0 {
		data, err := json.Marshal(raw)
		if err != nil {
			return Arguments{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		if err := json.Unmarshal(data, &args); err != nil {
			return Arguments{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
	}
	if args.Mode == "" {
		args.Mode = experts.ModeAdvisory
	}
	if args.Files == nil {
		args.Files = []string{}
	}
	return args, nil
}

// CallTool resolves name to an expert and runs it. ErrUnknownTool,
// experts.ErrUnknownExpert, and ErrInvalidArguments are returned as errors;
// provider failures come back as inline text.
func (d *Delegator) CallTool(ctx context.Context, name string, raw map[string]any) (string, error) {
	expert, ok := strings.CutPrefix(name, d.prefix+"_")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	args, err := DecodeArguments(raw)
	if err != nil {
		return "", err
	}
	return d.CallExpert(ctx, expert, args)
}

// CallExpert composes the prompt for expert and sends it to the provider
func (d *Delegator) CallExpert(ctx context.Context, expert string, args Arguments) (string, error) {
	prompt, err := experts.Compose(expert, args.Task, args.Mode, args.Context, args.Files)
	if err != nil {
		return "", err
	}

	requestID := d.newID()
	logger := d.logger.With("request_id", requestID, "expert", expert)
	logger.Info("calling expert",
		"mode", args.Mode,
		"model", d.provider.Config().Model,
		"prompt_tokens_est", utils.EstimatePromptTokens(prompt.System, prompt.User))

	started := time.Now()
	resp, err := d.provider.Call(ctx, prompt.System, prompt.User, types.CallOptions{RequestID: requestID})
	if err != nil {
		if status, ok := types.StatusCodeOf(err); ok {
			logger = logger.With("status", status)
		}
		logger.Error("error calling provider", "error", err, "latency", time.Since(started))
		return fmt.Sprintf("[Error calling provider: %v]", err), nil
	}

	tokens, reported := utils.ReportedOrEstimated(resp.TokensUsed, resp.Text)
	logger.Info("response received",
		"chars", len(resp.Text),
		"model", resp.Model,
		"tokens", tokens,
		"tokens_reported", reported,
		"latency", time.Since(started))
	return resp.Text, nil
}
