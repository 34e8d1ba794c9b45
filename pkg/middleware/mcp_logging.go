package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxLoggedValueLen truncates string arguments in MCP logs.
const maxLoggedValueLen = 120

// MCPRequestLogger returns middleware that logs MCP tool calls. Only
// tools/call requests are logged; the tool result is inspected so failures
// reported in-band (isError) are logged as failures too.
// Pass nil logger to disable logging.
func MCPRequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				logger.Error("Failed to read MCP request body", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))

			var rpcReq jsonRPCRequest
			if err := json.Unmarshal(bodyBytes, &rpcReq); err != nil || rpcReq.Method != "tools/call" {
				next.ServeHTTP(w, r)
				return
			}

			tool := rpcReq.Params.Name
			logger.Debug("MCP tool call",
				zap.String("tool", tool),
				zap.Any("arguments", summarizeArguments(rpcReq.Params.Arguments)),
			)

			recorder := &mcpResponseRecorder{ResponseWriter: w, body: &bytes.Buffer{}}
			start := time.Now()
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)

			var rpcResp jsonRPCResponse
			if err := json.Unmarshal(recorder.body.Bytes(), &rpcResp); err != nil {
				// Streamed responses are not JSON bodies.
				logger.Debug("MCP tool call finished",
					zap.String("tool", tool),
					zap.Duration("duration", duration))
				return
			}

			switch {
			case rpcResp.Error != nil:
				logger.Warn("MCP tool call failed",
					zap.String("tool", tool),
					zap.Int("error_code", rpcResp.Error.Code),
					zap.String("error_message", rpcResp.Error.Message),
					zap.Duration("duration", duration))
			case rpcResp.Result != nil && rpcResp.Result.IsError:
				logger.Info("MCP tool call rejected",
					zap.String("tool", tool),
					zap.String("message", firstText(rpcResp.Result.Content)),
					zap.Duration("duration", duration))
			default:
				logger.Debug("MCP tool call succeeded",
					zap.String("tool", tool),
					zap.Duration("duration", duration))
			}
		})
	}
}

type jsonRPCRequest struct {
	Method string `json:"method"`
	Params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type jsonRPCResponse struct {
	Result *toolResult   `json:"result"`
	Error  *jsonRPCError `json:"error"`
}

type toolResult struct {
	IsError bool          `json:"isError"`
	Content []textContent `json:"content"`
}

type textContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type jsonRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func firstText(content []textContent) string {
	for _, c := range content {
		if c.Type == "text" {
			return truncate(c.Text)
		}
	}
	return ""
}

// mcpResponseRecorder captures the response body while passing it through.
type mcpResponseRecorder struct {
	http.ResponseWriter
	body *bytes.Buffer
}

func (r *mcpResponseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *mcpResponseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

var sensitiveArgumentKeywords = []string{"password", "secret", "token", "api_key", "credential"}

// summarizeArguments redacts sensitive keys, truncates long strings and
// replaces nested objects (entity data) with their key count.
func summarizeArguments(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}

	out := make(map[string]any, len(args))
	for k, v := range args {
		lowerKey := strings.ToLower(k)
		redacted := false
		for _, keyword := range sensitiveArgumentKeywords {
			if strings.Contains(lowerKey, keyword) {
				redacted = true
				break
			}
		}
		if redacted {
			out[k] = "[REDACTED]"
			continue
		}

		switch val := v.(type) {
		case string:
			out[k] = truncate(val)
		case map[string]any:
			out[k] = map[string]int{"keys": len(val)}
		case []any:
			out[k] = map[string]int{"items": len(val)}
		default:
			out[k] = v
		}
	}
	return out
}

func truncate(s string) string {
	if len(s) > maxLoggedValueLen {
		return s[:maxLoggedValueLen] + "..."
	}
	return s
}
