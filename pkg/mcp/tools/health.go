package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type healthResult struct {
	Status    string   `json:"status"`
	Version   string   `json:"version"`
	Databases []string `json:"databases"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server version and the databases it can score against.
func RegisterHealthTool(s *server.MCPServer, version string, eval Evaluator) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and loaded database ids"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := json.Marshal(healthResult{Status: "ok", Version: version, Databases: eval.Databases()})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
