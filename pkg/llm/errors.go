package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies an upstream failure.
type ErrorType string

const (
	ErrorTypeEndpoint  ErrorType = "endpoint"   // unreachable, timing out, or failing server-side
	ErrorTypeAuth      ErrorType = "auth"       // bad or missing API key
	ErrorTypeModel     ErrorType = "model"      // configured model does not exist
	ErrorTypeRateLimit ErrorType = "rate_limit" // provider-side throttling
	ErrorTypeResponse  ErrorType = "response"   // reply could not be used
	ErrorTypeUnknown   ErrorType = "unknown"
)

// Error is a classified provider error.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int
	Model      string
}

func (e *Error) Error() string {
	parts := []string{string(e.Type)}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}
	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements retry.RetryableError.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a classified error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// ClassifyError maps a raw client error onto an *Error. Errors that are
// already classified are returned unchanged.
func ClassifyError(err error, model string) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)

	statusCode := 0
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504, 529} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			statusCode = code
			break
		}
	}

	var out *Error
	switch {
	case statusCode == 401 || statusCode == 403 ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "authentication"):
		out = NewError(ErrorTypeAuth, "authentication failed", false, err)
	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		out = NewError(ErrorTypeModel, "model not found", false, err)
	case statusCode == 404:
		out = NewError(ErrorTypeEndpoint, "endpoint not found", false, err)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		out = NewError(ErrorTypeEndpoint, "request cancelled", false, err)
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "no such host"):
		out = NewError(ErrorTypeEndpoint, "connection failed", true, err)
	case strings.Contains(lower, "timeout"):
		out = NewError(ErrorTypeEndpoint, "request timeout", true, err)
	case statusCode == 429 || strings.Contains(lower, "rate limit"):
		out = NewError(ErrorTypeRateLimit, "rate limited", true, err)
	case statusCode >= 500 || strings.Contains(lower, "overloaded"):
		out = NewError(ErrorTypeEndpoint, "server error", true, err)
	default:
		out = NewError(ErrorTypeUnknown, "provider error", false, err)
	}

	out.StatusCode = statusCode
	out.Model = model
	return out
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
