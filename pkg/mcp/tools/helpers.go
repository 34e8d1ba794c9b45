package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// requireTrimmedString returns a required string argument, rejecting blanks.
func requireTrimmedString(req mcp.CallToolRequest, key string) (string, error) {
	v, err := req.RequireString(key)
	if err != nil {
		return "", err
	}
	v = trimString(v)
	if v == "" {
		return "", fmt.Errorf("%s must not be empty", key)
	}
	return v, nil
}

// getOptionalString extracts an optional, trimmed string argument.
func getOptionalString(req mcp.CallToolRequest, key string) *string {
	val, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	val = trimString(val)
	if val == "" {
		return nil
	}
	return &val
}

// decodeArgument re-encodes an object or array argument into dst.
// It reports false when the argument is absent or null.
func decodeArgument(req mcp.CallToolRequest, key string, dst any) (bool, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return false, nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, fmt.Errorf("%s has the wrong shape: %w", key, err)
	}
	return true, nil
}

// jsonResult marshals v as the text content of a successful tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}
