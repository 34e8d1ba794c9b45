package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name  string
		input json.RawMessage
		want  string
	}{
		{"string value", json.RawMessage(`"hello"`), "hello"},
		{"integer value", json.RawMessage(`42`), "42"},
		{"float value", json.RawMessage(`19.99`), "19.99"},
		{"large integer", json.RawMessage(`12345678901`), "12345678901"},
		{"boolean true", json.RawMessage(`true`), "true"},
		{"boolean false", json.RawMessage(`false`), "false"},
		{"null value", json.RawMessage(`null`), ""},
		{"empty input", nil, ""},
		{"object", json.RawMessage(`{"a":1}`), `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FlexibleStringValue(tt.input))
		})
	}
}

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(nil))
	assert.True(t, IsBlank(json.RawMessage(`null`)))
	assert.True(t, IsBlank(json.RawMessage(`"   "`)))
	assert.True(t, IsBlank(json.RawMessage(`{}`)))
	assert.True(t, IsBlank(json.RawMessage(`[]`)))

	assert.False(t, IsBlank(json.RawMessage(`0`)))
	assert.False(t, IsBlank(json.RawMessage(`false`)))
	assert.False(t, IsBlank(json.RawMessage(`"x"`)))
}
