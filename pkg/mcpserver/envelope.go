package mcpserver

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/sqlgate/sqlgate/pkg/errors"
)

// envelope is the uniform result shape every tool returns. Success
// carries a human-readable summary plus the operation payload;
// failure carries the message and the error code in metadata.
type envelope struct {
	Success  bool           `json:"success"`
	Content  string         `json:"content,omitempty"`
	Data     any            `json:"data,omitempty"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func okResult(content string, data any) (*mcp.CallToolResult, error) {
	return marshalEnvelope(envelope{Success: true, Content: content, Data: data})
}

func errorResult(err error) *mcp.CallToolResult {
	env := envelope{
		Success:  false,
		Error:    err.Error(),
		Metadata: map[string]any{"code": errors.GetCode(err)},
	}
	if details := errors.GetDetails(err); len(details) > 0 {
		env.Metadata["details"] = details
	}

	result, marshalErr := marshalEnvelope(env)
	if marshalErr != nil {
		result = textResult(fmt.Sprintf(`{"success":false,"error":%q}`, err.Error()))
	}
	result.IsError = true
	return result
}

// partialBatchResult reports a failed batch together with the counts
// of the parameter sets that did complete before the failure.
func partialBatchResult(err error, partial any) *mcp.CallToolResult {
	env := envelope{
		Success: false,
		Error:   err.Error(),
		Metadata: map[string]any{
			"code":           errors.GetCode(err),
			"partial_result": partial,
		},
	}
	if details := errors.GetDetails(err); len(details) > 0 {
		env.Metadata["details"] = details
	}

	result, marshalErr := marshalEnvelope(env)
	if marshalErr != nil {
		return errorResult(err)
	}
	result.IsError = true
	return result
}

func marshalEnvelope(env envelope) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// argInt reads a numeric argument. JSON numbers arrive as float64.
func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

func argBool(args map[string]any, key string, fallback bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return fallback
}

// argTimeout reads a timeout argument given in seconds.
func argTimeout(args map[string]any, key string) time.Duration {
	switch v := args[key].(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int:
		return time.Duration(v) * time.Second
	}
	return 0
}

// argParams reads a positional parameter list.
func argParams(args map[string]any, key string) []any {
	if v, ok := args[key].([]any); ok {
		return v
	}
	return nil
}

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", errors.Newf(errors.CodeInvalidRequest, "%s is required", key)
	}
	return v, nil
}
