// Package server implements the MCP dispatch state machine and the
// newline-delimited JSON-RPC transport it runs on.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sourcegraph/jsonrpc2"

	"github.com/cecil-the-coder/llm-delegator/pkg/delegator"
	"github.com/cecil-the-coder/llm-delegator/pkg/experts"
)

const (
	// ProtocolVersion is the MCP revision announced in initialize
	ProtocolVersion = "2024-11-05"
	// Name is announced as serverInfo.name
	Name = "llm-delegator"
	// DefaultVersion is announced as serverInfo.version unless overridden
	DefaultVersion = "2.0.0"

	methodInitialized = "notifications/initialized"
)

// Recorder receives one event per handled message. metrics.Collector
// satisfies it.
type Recorder interface {
	RecordRPC(method, outcome string)
	RecordToolCall(tool, outcome string)
}

// Server dispatches MCP methods to a delegator. It is driven by one
// goroutine and holds no locks.
type Server struct {
	delegator *delegator.Delegator
	logger    *slog.Logger
	recorder  Recorder
	version   string

	maxMessageSize int

	initialized bool
}

// Option configures a Server
type Option func(*Server)

// WithLogger sets the logger; nil keeps slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(recorder Recorder) Option {
	return func(s *Server) {
		s.recorder = recorder
	}
}

// WithVersion overrides DefaultVersion
func WithVersion(version string) Option {
	return func(s *Server) {
		if version != "" {
			s.version = version
		}
	}
}

// WithMaxMessageSize overrides DefaultMaxMessageSize. Longer input lines are
// logged and skipped.
func WithMaxMessageSize(size int) Option {
	return func(s *Server) {
		if size > 0 {
			s.maxMessageSize = size
		}
	}
}

// New creates a server around d. A nil delegator is rejected so that every
// request can be answered.
func New(d *delegator.Delegator, opts ...Option) (*Server, error) {
	if d == nil {
		return nil, errors.New("server requires a delegator")
	}
	s := &Server{
		delegator: d,
		logger:    slog.Default(),
		version:   DefaultVersion,

		maxMessageSize: DefaultMaxMessageSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialized reports whether initialize has been received
func (s *Server) Initialized() bool {
	return s.initialized
}

// Handle processes one decoded message. It returns nil for notifications,
// otherwise exactly one response echoing msg.ID.
func (s *Server) Handle(ctx context.Context, msg *Message) *Response {
	s.logger.Debug("received message", "method", msg.Method, "notification", msg.Notification())

	result, rpcErr := s.dispatch(ctx, msg)

	outcome := "ok"
	switch {
	case msg.Notification():
		outcome = "notification"
	case rpcErr != nil:
		outcome = "error"
	}
	s.record(msg.Method, outcome)

	if msg.Notification() {
		return nil
	}

	resp := newResponse(msg.ID)
	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}
	if err := resp.SetResult(result); err != nil {
		s.logger.Error("failed to encode result", "method", msg.Method, "error", err)
		resp.Error = &jsonrpc2.Error{Code: jsonrpc2.CodeInternalError, Message: "failed to encode result: " + err.Error()}
	}
	return resp
}

func (s *Server) dispatch(ctx context.Context, msg *Message) (any, *jsonrpc2.Error) {
	if !msg.HasMethod {
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "Method not found: missing method",
		}
	}

	switch msg.Method {
	case string(mcp.MethodInitialize):
		return s.initialize(), nil
	case methodInitialized:
		return struct{}{}, nil
	case string(mcp.MethodToolsList):
		return s.listTools(ctx)
	case string(mcp.MethodToolsCall):
		return s.callTool(ctx, msg)
	default:
		return nil, &jsonrpc2.Error{
			Code:    jsonrpc2.CodeMethodNotFound,
			Message: "Method not found: " + msg.Method,
		}
	}
}

func (s *Server) initialize() *mcp.InitializeResult {
	s.initialized = true
	s.logger.Info("client initialized")

	result := &mcp.InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo: mcp.Implementation{
			Name:    Name,
			Version: s.version,
		},
	}
	result.Capabilities.Tools = &struct {
		ListChanged bool `json:"listChanged,omitempty"`
	}{}
	return result
}

func (s *Server) listTools(ctx context.Context) (any, *jsonrpc2.Error) {
	provider := s.delegator.Provider()
	if !provider.Started() {
		if err := provider.Start(ctx); err != nil {
			s.logger.Error("failed to start provider", "error", err)
			return nil, &jsonrpc2.Error{
				Code:    jsonrpc2.CodeInternalError,
				Message: fmt.Sprintf("failed to start provider: %v", err),
			}
		}
		s.logger.Info("provider initialized", "provider", provider.Type(), "model", provider.Config().Model)
	}
	return &mcp.ListToolsResult{Tools: s.delegator.Tools()}, nil
}

func (s *Server) callTool(ctx context.Context, msg *Message) (any, *jsonrpc2.Error) {
	var params mcp.CallToolParams
	if msg.Params != nil {
		if err := json.Unmarshal(*msg.Params, &params); err != nil {
			return nil, invalidParams(err)
		}
	}
	if params.Name == "" {
		return nil, invalidParams(errors.New("missing tool name"))
	}

	arguments, ok := params.Arguments.(map[string]any)
	if params.Arguments != nil && !ok {
		return nil, invalidParams(errors.New("arguments must be an object"))
	}

	text, err := s.delegator.CallTool(ctx, params.Name, arguments)
	switch {
	case errors.Is(err, delegator.ErrInvalidArguments):
		s.recordTool(params.Name, "invalid_arguments")
		return nil, invalidParams(err)
	case errors.Is(err, delegator.ErrUnknownTool), errors.Is(err, experts.ErrUnknownExpert):
		s.logger.Warn("tool call rejected", "tool", params.Name, "error", err)
		s.recordTool(params.Name, "rejected")
		text = fmt.Sprintf("[Error: %v]", err)
	case err != nil:
		s.logger.Error("tool call failed", "tool", params.Name, "error", err)
		s.recordTool(params.Name, "error")
		text = fmt.Sprintf("[Error: %v]", err)
	default:
		s.recordTool(params.Name, "ok")
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}, nil
}

func invalidParams(err error) *jsonrpc2.Error {
	return &jsonrpc2.Error{
		Code:    jsonrpc2.CodeInvalidParams,
		Message: "Invalid params: " + err.Error(),
	}
}

func (s *Server) record(method, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordRPC(method, outcome)
	}
}

func (s *Server) recordTool(tool, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordToolCall(tool, outcome)
	}
}
