package base

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cecil-the-coder/llm-delegator/pkg/types"
)

// maxErrorBody bounds how much of an error body ends up in the message
const maxErrorBody = 512

// checkStatusCode returns a status error for any non-2xx reply
func (p *BaseProvider) checkStatusCode(statusCode int, body []byte) *types.ProviderError {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	p.logger.Error("backend returned error status", "status", statusCode)
	return types.NewStatusError(p.config.Provider, statusCode,
		fmt.Sprintf("HTTP %d - %s", statusCode, errorMessage(body)))
}

// errorMessage extracts a message from the common error body patterns, falling
// back to the raw body
func errorMessage(body []byte) string {
	var errorData map[string]interface{}
	if json.Unmarshal(body, &errorData) == nil {
		if errObj, ok := errorData["error"].(map[string]interface{}); ok {
			if msg, ok := errObj["message"].(string); ok {
				return msg
			}
		}
		if msg, ok := errorData["error"].(string); ok {
			return msg
		}
		if msg, ok := errorData["message"].(string); ok {
			return msg
		}
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	if text == "" {
		return "empty response body"
	}
	return text
}

// decodeObject decodes a reply body that must be a JSON object
func decodeObject(body []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("response body is null")
	}
	return raw, nil
}
