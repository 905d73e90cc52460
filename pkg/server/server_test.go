package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecil-the-coder/llm-delegator/internal/testutil"
	"github.com/cecil-the-coder/llm-delegator/pkg/delegator"
	"github.com/cecil-the-coder/llm-delegator/pkg/factory"
	"github.com/cecil-the-coder/llm-delegator/pkg/metrics"
	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

func newMockProvider() *testutil.ConfigurableMockProvider {
	return testutil.NewConfigurableMockProvider(types.ProviderTypeAnthropicCompatible, "glm-4.7")
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, provider types.Provider, opts ...Option) *Server {
	t.Helper()
	d, err := delegator.New(provider, delegator.WithLogger(discardLogger()))
	require.NoError(t, err)
	s, err := New(d, append([]Option{WithLogger(discardLogger())}, opts...)...)
	require.NoError(t, err)
	return s
}

func serve(t *testing.T, s *Server, lines ...string) []rpcResponse {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, s.Serve(context.Background(), in, &out))

	var responses []rpcResponse
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		if line == "" {
			continue
		}
		var resp rpcResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp), "each output line is one JSON object: %s", line)
		responses = append(responses, resp)
	}
	return responses
}

func decodeToolText(t *testing.T, resp rpcResponse) string {
	t.Helper()
	require.Nil(t, resp.Error)
	var result toolResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	assert.False(t, result.IsError)
	return result.Content[0].Text
}

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestServer_Initialize(t *testing.T) {
	s := newTestServer(t, newMockProvider(), WithVersion("9.9.9"))
	responses := serve(t, s, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	require.Len(t, responses, 1)
	assert.Equal(t, "2.0", responses[0].JSONRPC)
	assert.JSONEq(t, `1`, string(responses[0].ID))
	assert.JSONEq(t, `{
		"protocolVersion": "2024-11-05",
		"serverInfo": {"name": "llm-delegator", "version": "9.9.9"},
		"capabilities": {"tools": {}}
	}`, string(responses[0].Result))
	assert.True(t, s.Initialized())
}

func TestServer_Notifications(t *testing.T) {
	provider := newMockProvider()
	responses := serve(t, newTestServer(t, provider),
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","method":"unknown/notification"}`,
		`{"jsonrpc":"2.0","method":"initialize"}`,
	)
	assert.Empty(t, responses, "messages without id are never answered")
}

func TestServer_IDEcho(t *testing.T) {
	responses := serve(t, newTestServer(t, newMockProvider()),
		`{"jsonrpc":"2.0","id":"abc","method":"initialize"}`,
		`{"jsonrpc":"2.0","id":42,"method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":7,"method":"resources/list"}`,
	)

	require.Len(t, responses, 3)
	assert.JSONEq(t, `"abc"`, string(responses[0].ID))
	assert.JSONEq(t, `42`, string(responses[1].ID))
	assert.JSONEq(t, `{}`, string(responses[1].Result))
	assert.JSONEq(t, `7`, string(responses[2].ID))
}

func TestServer_MethodNotFound(t *testing.T) {
	responses := serve(t, newTestServer(t, newMockProvider()), `{"jsonrpc":"2.0","id":3,"method":"prompts/list"}`)

	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, -32601, responses[0].Error.Code)
	assert.Equal(t, "Method not found: prompts/list", responses[0].Error.Message)
	assert.Nil(t, responses[0].Result)
}

func TestServer_MalformedLinesAreSkipped(t *testing.T) {
	collector := metrics.NewCollector()
	responses := serve(t, newTestServer(t, newMockProvider(), WithRecorder(collector)),
		`{not json`,
		``,
		`   `,
		`[1,2,3]`,
		`null`,
		`{"jsonrpc":"2.0","id":2,"method":"initialize"}`,
	)

	require.Len(t, responses, 1)
	assert.JSONEq(t, `2`, string(responses[0].ID))
	series, err := promtestutil.GatherAndCount(collector.Registry(), "llm_delegator_rpc_messages_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series, "one malformed series and one initialize series")
}

func serveRaw(t *testing.T, s *Server, input string) []string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, s.Serve(context.Background(), strings.NewReader(input), &out))
	return strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
}

func TestServer_IDEchoedVerbatim(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"Negative", `-1`},
		{"Fractional", `1.5`},
		{"Exponent", `1e3`},
		{"Null", `null`},
		{"LargeInteger", `123456789012345678901234567890`},
		{"String", `"req-1"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := serveRaw(t, newTestServer(t, newMockProvider()),
				`{"jsonrpc":"2.0","id":`+tt.id+`,"method":"initialize"}`+"\n")

			require.Len(t, lines, 1)
			assert.True(t, strings.HasPrefix(lines[0], `{"jsonrpc":"2.0","id":`+tt.id+`,"result":`), lines[0])
		})
	}
}

func TestServer_MissingMethod(t *testing.T) {
	lines := serveRaw(t, newTestServer(t, newMockProvider()),
		`{"jsonrpc":"2.0","id":1}`+"\n"+
			`{"jsonrpc":"2.0","id":null,"params":{}}`+"\n"+
			`{"jsonrpc":"2.0"}`+"\n")

	require.Len(t, lines, 2, "requests without a method are answered, notifications are not")
	for i, id := range []string{`1`, `null`} {
		var resp rpcResponse
		require.NoError(t, json.Unmarshal([]byte(lines[i]), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, -32601, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "Method not found")
		assert.True(t, strings.Contains(lines[i], `"id":`+id), lines[i])
	}
}

func TestServer_OversizedLinesAreSkipped(t *testing.T) {
	t.Run("ConfiguredLimit", func(t *testing.T) {
		collector := metrics.NewCollector()
		s := newTestServer(t, newMockProvider(), WithMaxMessageSize(1024), WithRecorder(collector))

		atLimit := `{"jsonrpc":"2.0","id":2,"method":"initialize"}`
		atLimit += strings.Repeat(" ", 1024-len(atLimit))

		responses := serve(t, s,
			`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"pad":"`+strings.Repeat("x", 4096)+`"}}`,
			atLimit,
		)

		require.Len(t, responses, 1)
		assert.JSONEq(t, `2`, string(responses[0].ID))
		series, err := promtestutil.GatherAndCount(collector.Registry(), "llm_delegator_rpc_messages_total")
		require.NoError(t, err)
		assert.Equal(t, 2, series, "one oversized series and one initialize series")
	})

	t.Run("DefaultLimit", func(t *testing.T) {
		responses := serve(t, newTestServer(t, newMockProvider()),
			strings.Repeat("x", DefaultMaxMessageSize+1),
			`{"jsonrpc":"2.0","id":1,"method":"initialize"}`,
		)

		require.Len(t, responses, 1)
		assert.JSONEq(t, `1`, string(responses[0].ID))
	})
}

func TestReadLine(t *testing.T) {
	reader := bufio.NewReaderSize(strings.NewReader("short\r\n"+strings.Repeat("y", 40)+"\nlast"), 16)

	line, tooLong, err := readLine(reader, 32)
	require.NoError(t, err)
	assert.False(t, tooLong)
	assert.Equal(t, "short", string(line))

	line, tooLong, err = readLine(reader, 32)
	require.NoError(t, err)
	assert.True(t, tooLong)
	assert.Nil(t, line)

	line, tooLong, err = readLine(reader, 32)
	assert.ErrorIs(t, err, io.EOF)
	assert.False(t, tooLong)
	assert.Equal(t, "last", string(line), "a final line without newline is still returned")
}

func TestServer_ToolsList(t *testing.T) {
	t.Run("BeforeInitialize", func(t *testing.T) {
		provider := newMockProvider()
		s := newTestServer(t, provider)
		responses := serve(t, s, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

		require.Len(t, responses, 1)
		require.Nil(t, responses[0].Error)
		var result struct {
			Tools []struct {
				Name        string         `json:"name"`
				Description string         `json:"description"`
				InputSchema map[string]any `json:"inputSchema"`
			} `json:"tools"`
		}
		require.NoError(t, json.Unmarshal(responses[0].Result, &result))
		require.Len(t, result.Tools, 5)
		assert.Equal(t, "glm_architect", result.Tools[0].Name)
		assert.Equal(t, "Delegate to the Architect expert (glm-4.7)", result.Tools[0].Description)
		assert.Equal(t, []any{"task"}, result.Tools[0].InputSchema["required"])
		assert.False(t, s.Initialized())
		assert.True(t, provider.Started(), "tools/list starts the provider")
	})

	t.Run("StartsOnce", func(t *testing.T) {
		provider := newMockProvider()
		serve(t, newTestServer(t, provider),
			`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`,
			`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		)
		assert.Equal(t, 1, provider.GetStartCallCount())
	})

	t.Run("StartFailure", func(t *testing.T) {
		provider := newMockProvider().SetStartError(errors.New("no route"))
		responses := serve(t, newTestServer(t, provider), `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`)

		require.Len(t, responses, 1)
		require.NotNil(t, responses[0].Error)
		assert.Equal(t, -32603, responses[0].Error.Code)
		assert.Contains(t, responses[0].Error.Message, "no route")
	})
}

func TestServer_ToolsCall(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		provider := newMockProvider().SetReply("ship it")
		responses := serve(t, newTestServer(t, provider),
			`{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"glm_code_reviewer","arguments":{"task":"Review auth.go"}}}`)

		require.Len(t, responses, 1)
		assert.Equal(t, "ship it", decodeToolText(t, responses[0]))
		assert.Equal(t, 1, provider.GetCallCount())
	})

	t.Run("UnknownExpertIsInlined", func(t *testing.T) {
		provider := newMockProvider()
		responses := serve(t, newTestServer(t, provider),
			`{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"glm_nonexistent","arguments":{"task":"x"}}}`)

		require.Len(t, responses, 1)
		text := decodeToolText(t, responses[0])
		assert.True(t, strings.HasPrefix(text, "[Error: unknown expert: nonexistent"), text)
		assert.Equal(t, 0, provider.GetCallCount(), "no provider call for an unknown expert")
	})

	t.Run("UnknownToolIsInlined", func(t *testing.T) {
		responses := serve(t, newTestServer(t, newMockProvider()),
			`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"codex_architect","arguments":{}}}`)

		require.Len(t, responses, 1)
		assert.Equal(t, "[Error: unknown tool: codex_architect]", decodeToolText(t, responses[0]))
	})

	t.Run("ProviderErrorIsInlined", func(t *testing.T) {
		provider := newMockProvider().SetCallError(errors.New("connection refused"))
		responses := serve(t, newTestServer(t, provider),
			`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"glm_architect","arguments":{"task":"x"}}}`)

		require.Len(t, responses, 1)
		assert.Equal(t, "[Error calling provider: connection refused]", decodeToolText(t, responses[0]))
	})

	t.Run("InvalidParams", func(t *testing.T) {
		responses := serve(t, newTestServer(t, newMockProvider()),
			`{"jsonrpc":"2.0","id":9,"method":"tools/call","params":{"arguments":{"task":"x"}}}`,
			`{"jsonrpc":"2.0","id":10,"method":"tools/call","params":{"name":"glm_architect","arguments":"x"}}`,
			`{"jsonrpc":"2.0","id":11,"method":"tools/call","params":{"name":"glm_architect","arguments":{"files":"a.go"}}}`,
		)

		require.Len(t, responses, 3)
		for _, resp := range responses {
			require.NotNil(t, resp.Error)
			assert.Equal(t, -32602, resp.Error.Code)
		}
	})
}

func TestServer_ServeEndsOnCancel(t *testing.T) {
	s := newTestServer(t, newMockProvider())
	reader, writer := io.Pipe()
	defer writer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(ctx, reader, io.Discard)
	}()

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

// End to end over a scripted Anthropic-style backend
func TestServer_EndToEnd(t *testing.T) {
	var hits atomic.Int32
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/api/anthropic/messages", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"content":[{"text":"hi"}],"usage":{"input_tokens":3,"output_tokens":4}}`))
	}))
	defer backend.Close()

	collector := metrics.NewCollector()
	f := factory.NewDefaultFactory()
	f.SetMetricsCollector(collector)
	f.SetLogger(discardLogger())

	provider, err := f.CreateProvider(types.BackendConfig{
		Provider: types.ProviderTypeAnthropicCompatible,
		BaseURL:  backend.URL + "/api/anthropic",
		Model:    "glm-4.7",
	})
	require.NoError(t, err)
	defer provider.Stop()

	s := newTestServer(t, provider, WithRecorder(collector))
	responses := serve(t, s,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"glm_security_analyst","arguments":{"task":"Audit"}}}`,
	)

	require.Len(t, responses, 3)
	assert.Equal(t, "hi", decodeToolText(t, responses[2]))
	assert.Equal(t, int32(1), hits.Load())
	assert.True(t, provider.Started())
	series, err := promtestutil.GatherAndCount(collector.Registry(), "llm_delegator_provider_requests_total", "llm_delegator_provider_tokens_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}
