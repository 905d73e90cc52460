package base

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// RequestIDHeader carries the per-call correlation id
const RequestIDHeader = "X-Request-Id"

// Request describes one JSON POST against the backend
type Request struct {
	Operation string // e.g. "chat_completions", "messages"
	Path      string // appended to the configured base URL
	Headers   http.Header
	Body      interface{}
	RequestID string
}

// Reply is a successful (2xx) backend reply
type Reply struct {
	StatusCode int
	Body       []byte
	Raw        map[string]interface{}
}

// Endpoint joins the configured base URL and path
func (p *BaseProvider) Endpoint(path string) string {
	return strings.TrimRight(p.config.BaseURL, "/") + path
}

// PostJSON sends req.Body as JSON and returns the decoded reply. Non-2xx
// statuses, transport failures, and undecodable bodies come back as
// *types.ProviderError.
func (p *BaseProvider) PostJSON(ctx context.Context, req Request) (*Reply, error) {
	client, err := p.httpClient(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.waitForSlot(ctx); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := p.Endpoint(req.Path)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.RequestID != "" {
		httpReq.Header.Set(RequestIDHeader, req.RequestID)
	}

	p.logger.Debug("calling backend", "url", url, "operation", req.Operation, "request_id", req.RequestID)

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, p.transportError(req.Operation, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, p.transportError(req.Operation, err)
	}

	if err := p.checkStatusCode(resp.StatusCode, body); err != nil {
		return nil, err.WithOperation(req.Operation)
	}

	raw, err := decodeObject(body)
	if err != nil {
		return nil, types.NewResponseShapeError(p.config.Provider, "response body is not a JSON object").
			WithOperation(req.Operation).
			WithOriginalErr(err)
	}

	return &Reply{StatusCode: resp.StatusCode, Body: body, Raw: raw}, nil
}

// transportError separates client timeouts from other network failures
func (p *BaseProvider) transportError(operation string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return types.NewTimeoutError(p.config.Provider, "request timed out").
			WithOperation(operation).
			WithOriginalErr(err)
	}
	return types.NewNetworkError(p.config.Provider, "request failed: "+err.Error()).
		WithOperation(operation).
		WithOriginalErr(err)
}
