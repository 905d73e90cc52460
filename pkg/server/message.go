package server

import (
	"encoding/json"
	"fmt"

	"github.com/sourcegraph/jsonrpc2"
)

const jsonrpcVersion = "2.0"

// Message is one decoded input line. ID holds the raw id bytes exactly as
// received, including a literal null; it is nil only when the member is
// absent, which makes the message a notification.
type Message struct {
	Method    string
	HasMethod bool
	Params    *json.RawMessage
	ID        *json.RawMessage
}

// Notification reports whether the message carries no id member
func (m *Message) Notification() bool {
	return m.ID == nil
}

// UnmarshalJSON decodes a JSON object, recording which members were present
func (m *Message) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	if members == nil {
		return fmt.Errorf("message must be a JSON object")
	}

	*m = Message{}
	if method, ok := members["method"]; ok {
		if err := json.Unmarshal(method, &m.Method); err != nil {
			return fmt.Errorf("method must be a string: %w", err)
		}
		m.HasMethod = true
	}
	if params, ok := members["params"]; ok {
		m.Params = &params
	}
	if id, ok := members["id"]; ok {
		if len(id) == 0 {
			id = json.RawMessage("null")
		}
		m.ID = &id
	}
	return nil
}

// Response is one output line. ID is written back byte for byte.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpc2.Error `json:"error,omitempty"`
}

func newResponse(id *json.RawMessage) *Response {
	resp := &Response{JSONRPC: jsonrpcVersion, ID: json.RawMessage("null")}
	if id != nil {
		resp.ID = *id
	}
	return resp
}

// SetResult encodes v as the response result
func (r *Response) SetResult(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	r.Result = data
	return nil
}
