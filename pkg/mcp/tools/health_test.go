package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterHealthTool(t *testing.T) {
	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterHealthTool(mcpServer, "test-version", &fakeEvaluator{})

	names := listToolNames(t, mcpServer)
	assert.Contains(t, names, "health")
}

func TestHealthTool_Execute(t *testing.T) {
	mcpServer := server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
	RegisterHealthTool(mcpServer, `1.2.3-beta"x`, &fakeEvaluator{databases: []string{"concert_singer", "flight_2"}})

	result := callTool(t, mcpServer, "health", nil)
	require.False(t, result.IsError)

	var health healthResult
	require.NoError(t, json.Unmarshal([]byte(result.Text), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, `1.2.3-beta"x`, health.Version)
	assert.Equal(t, []string{"concert_singer", "flight_2"}, health.Databases)
}

// toolResponse is the decoded result of a tools/call.
type toolResponse struct {
	Text    string
	IsError bool
}

// callTool executes an MCP tool via the server's HandleMessage method.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) toolResponse {
	t.Helper()

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	}
	reqBytes, err := json.Marshal(req)
	require.NoError(t, err)

	resultBytes, err := json.Marshal(s.HandleMessage(context.Background(), reqBytes))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Content []mcp.TextContent `json:"content"`
			IsError bool              `json:"isError"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	require.NotEmpty(t, response.Result.Content, "response: %s", resultBytes)

	return toolResponse{Text: response.Result.Content[0].Text, IsError: response.Result.IsError}
}

func listToolNames(t *testing.T, s *server.MCPServer) []string {
	t.Helper()

	result := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	names := make([]string, 0, len(response.Result.Tools))
	for _, tool := range response.Result.Tools {
		names = append(names, tool.Name)
	}
	return names
}
