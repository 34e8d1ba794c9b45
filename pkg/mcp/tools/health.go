package tools

import (
	"context"
	"sort"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-reliability/pkg/logging"
)

const healthCheckTimeout = 2 * time.Second

type dependencyHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type healthResult struct {
	Status       string             `json:"status"`
	Version      string             `json:"version"`
	Dependencies []dependencyHealth `json:"dependencies,omitempty"`
}

// RegisterHealthTool adds a health tool that reports the server version and
// the reachability of each named dependency. checks may be nil.
func RegisterHealthTool(s *server.MCPServer, version string, checks map[string]func(context.Context) error) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and the reachability of Postgres and Redis"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version}
		for _, name := range names {
			dep := dependencyHealth{Name: name, Status: "ok"}
			checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
			if err := checks[name](checkCtx); err != nil {
				dep.Status = "unavailable"
				dep.Error = logging.SanitizeError(err)
				result.Status = "degraded"
			}
			cancel()
			result.Dependencies = append(result.Dependencies, dep)
		}
		return jsonResult(result)
	})
}
