package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// NewAPIWeaveMCPServer creates an MCP server with every apiweave tool
// registered. workspace holds .apiweave.yaml; tools never write to it.
func NewAPIWeaveMCPServer(workspace string, log *zap.Logger) *server.MCPServer {
	if log == nil {
		log = zap.NewNop()
	}
	s := server.NewMCPServer(
		"apiweave",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	registerTools(s, workspace, log)

	return s
}
