// Package mcp exposes SQL scoring as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/sqleval/pkg/mcp/tools"
)

// Server wraps the mcp-go MCPServer with the scoring tools registered.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates an MCP server exposing health, compare_sql and
// canonicalize_sql backed by eval.
func NewServer(name, version string, eval tools.Evaluator, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	tools.RegisterHealthTool(mcpServer, version, eval)
	tools.RegisterScoringTools(mcpServer, eval)

	return &Server{
		mcp:    mcpServer,
		logger: logger.Named("mcp"),
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}

// Serve speaks MCP over the given streams until ctx is done or in closes.
// Logs must not go to out, which carries the protocol.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	s.logger.Info("MCP server listening on stdio")
	err := stdio.Listen(ctx, in, out)
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
