package mcp

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/logging"
)

// Tool call outcomes reported to a ToolObserver.
const (
	OutcomeOK        = "ok"
	OutcomeToolError = "tool_error" // in-band error result the client can act on
	OutcomeError     = "error"      // returned as a JSON-RPC error
)

// ToolObserver receives one observation per tool call. *metrics.Metrics
// implements it.
type ToolObserver interface {
	ObserveToolCall(tool, outcome string, duration time.Duration)
}

// observeToolCalls times every tool call and classifies its outcome.
// Failures that become JSON-RPC errors are logged with the sanitized error.
func observeToolCalls(observer ToolObserver, logger *zap.Logger) server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			start := time.Now()
			result, err := next(ctx, req)
			duration := time.Since(start)

			outcome := OutcomeOK
			switch {
			case err != nil:
				outcome = OutcomeError
				logger.Error("Tool call failed",
					zap.String("tool", req.Params.Name),
					zap.Duration("duration", duration),
					logging.Error(err))
			case result != nil && result.IsError:
				outcome = OutcomeToolError
				logger.Debug("Tool call returned an error result",
					zap.String("tool", req.Params.Name),
					zap.Duration("duration", duration))
			}

			if observer != nil {
				observer.ObserveToolCall(req.Params.Name, outcome, duration)
			}
			return result, err
		}
	}
}
