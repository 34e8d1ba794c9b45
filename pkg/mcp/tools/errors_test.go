package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-reliability/pkg/apperrors"
)

// getTextContent extracts the text string from the first text content item
func getTextContent(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if text, ok := result.Content[0].(mcp.TextContent); ok {
		return text.Text
	}
	return ""
}

func decodeErrorResponse(t *testing.T, result *mcp.CallToolResult) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(result)), &resp))
	return resp
}

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResult("test_error", "this is a test error")

	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	assert.True(t, result.IsError)

	errResp := decodeErrorResponse(t, result)
	assert.True(t, errResp.Error)
	assert.Equal(t, "test_error", errResp.Code)
	assert.Equal(t, "this is a test error", errResp.Message)
	assert.Nil(t, errResp.Details)
}

func TestNewErrorResultWithDetails(t *testing.T) {
	result := NewErrorResultWithDetails("validation_error", "bad field", map[string]any{"field": "fields"})

	errResp := decodeErrorResponse(t, result)
	assert.Equal(t, "validation_error", errResp.Code)
	detailsMap, ok := errResp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "fields", detailsMap["field"])
}

func TestErrorResponse_OmitsEmptyDetails(t *testing.T) {
	text := getTextContent(NewErrorResult("not_found", "resource not found"))
	assert.JSONEq(t, `{"error":true,"code":"not_found","message":"resource not found"}`, text)
}

func TestServiceErrorResult(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"validation", apperrors.NewValidationError("foreign_key", "is required"), "validation_error"},
		{"wrapped validation", fmt.Errorf("record: %w", apperrors.NewValidationError("fields", "bad")), "validation_error"},
		{"invalid input", fmt.Errorf("parse: %w", apperrors.ErrInvalidInput), "validation_error"},
		{"not found", fmt.Errorf("log: %w", apperrors.ErrNotFound), "not_found"},
		{"conflict", apperrors.ErrConflict, "conflict"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ServiceErrorResult(tt.err)
			require.NotNil(t, result)
			assert.True(t, result.IsError)
			assert.Equal(t, tt.wantCode, decodeErrorResponse(t, result).Code)
		})
	}

	t.Run("system failures are not in-band", func(t *testing.T) {
		assert.Nil(t, ServiceErrorResult(errors.New("connection refused")))
		assert.Nil(t, ServiceErrorResult(nil))
	})

	t.Run("validation details name the field", func(t *testing.T) {
		resp := decodeErrorResponse(t, ServiceErrorResult(apperrors.NewValidationError("source", "unknown")))
		assert.Equal(t, map[string]any{"field": "source"}, resp.Details)
		assert.Equal(t, "source: unknown", resp.Message)
	})
}
