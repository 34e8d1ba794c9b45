package tools

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestTrimString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"both sides whitespace", "  test  ", "test"},
		{"mixed whitespace", " \t\ntest\n\t ", "test"},
		{"no whitespace", "test", "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, trimString(tt.input))
		})
	}
}

func TestRequireTrimmedString(t *testing.T) {
	v, err := requireTrimmedString(callRequest(map[string]any{"model": "  Products "}), "model")
	require.NoError(t, err)
	assert.Equal(t, "Products", v)

	_, err = requireTrimmedString(callRequest(map[string]any{"model": "   "}), "model")
	assert.ErrorContains(t, err, "must not be empty")

	_, err = requireTrimmedString(callRequest(map[string]any{}), "model")
	assert.Error(t, err)

	_, err = requireTrimmedString(callRequest(map[string]any{"model": 42}), "model")
	assert.Error(t, err)
}

func TestGetOptionalString(t *testing.T) {
	req := callRequest(map[string]any{"message": " hi ", "blank": "  ", "number": 3})

	require.NotNil(t, getOptionalString(req, "message"))
	assert.Equal(t, "hi", *getOptionalString(req, "message"))
	assert.Nil(t, getOptionalString(req, "blank"))
	assert.Nil(t, getOptionalString(req, "number"))
	assert.Nil(t, getOptionalString(req, "missing"))
}

func TestDecodeArgument(t *testing.T) {
	req := callRequest(map[string]any{
		"fields": []any{map[string]any{"field": "title", "score": 0.5, "weight": 2.0}},
		"bad":    "not a list",
		"null":   nil,
	})

	var fields []fieldScoreArg
	present, err := decodeArgument(req, "fields", &fields)
	require.NoError(t, err)
	assert.True(t, present)
	require.Len(t, fields, 1)
	assert.Equal(t, "title", fields[0].Field)
	assert.Nil(t, fields[0].MaxScore)

	present, err = decodeArgument(req, "bad", &fields)
	assert.False(t, present)
	assert.ErrorContains(t, err, "wrong shape")

	present, err = decodeArgument(req, "null", &fields)
	require.NoError(t, err)
	assert.False(t, present)

	present, err = decodeArgument(req, "missing", &fields)
	require.NoError(t, err)
	assert.False(t, present)
}
