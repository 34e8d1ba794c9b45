package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// This is used to return actionable error information to the client
// as a successful tool result, ensuring error details are visible
// rather than being swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable errors the caller can fix (bad parameters,
// unknown entity). System failures should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// ServiceErrorResult converts caller-actionable service errors into an
// in-band error result. It returns nil for system failures, which the
// handler should surface as a Go error.
func ServiceErrorResult(err error) *mcp.CallToolResult {
	var validationErr *apperrors.ValidationError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &validationErr):
		return NewErrorResultWithDetails("validation_error", validationErr.Error(),
			map[string]any{"field": validationErr.Field})
	case errors.Is(err, apperrors.ErrInvalidInput):
		return NewErrorResult("validation_error", err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		return NewErrorResult("not_found", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		return NewErrorResult("conflict", "another writer updated this entity; retry the call")
	}
	return nil
}
