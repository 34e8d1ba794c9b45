package llm

import (
	"testing"
)

func TestExtractJSON_PlainObject(t *testing.T) {
	input := `{"suggestions": []}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != input {
		t.Errorf("expected %q, got %q", input, result)
	}
}

func TestExtractJSON_WithThinkTags(t *testing.T) {
	input := `<think>
The description is short, I should say so.
</think>
{"suggestions": [{"field": "description", "suggestion": "Add dimensions."}]}`

	expected := `{"suggestions": [{"field": "description", "suggestion": "Add dimensions."}]}`
	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != expected {
		t.Errorf("expected %q, got %q", expected, result)
	}
}

func TestExtractJSON_MarkdownFence(t *testing.T) {
	input := "Here you go:\n```json\n{\"a\": {\"b\": [1, 2]}}\n```\nHope that helps."

	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != `{"a": {"b": [1, 2]}}` {
		t.Errorf("unexpected result %q", result)
	}
}

func TestExtractJSON_BracesInsideStrings(t *testing.T) {
	input := `{"suggestion": "use {braces} and \"quotes\" sparingly"} trailing }`

	result, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != `{"suggestion": "use {braces} and \"quotes\" sparingly"}` {
		t.Errorf("unexpected result %q", result)
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	if _, err := ExtractJSON("I cannot help with that."); err == nil {
		t.Error("expected error for response without JSON")
	}
}

func TestParseJSONResponse(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	got, err := ParseJSONResponse[payload]("prefix {\"name\": \"widget\"} suffix")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "widget" {
		t.Errorf("expected widget, got %q", got.Name)
	}
}
