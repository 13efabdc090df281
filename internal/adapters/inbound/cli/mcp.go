package cli

import (
	mcpadapter "github.com/abdidvp/apiweave/internal/adapters/inbound/mcp"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

func newMCPCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "MCP server commands",
		Long:  "Commands for running the apiweave MCP (Model Context Protocol) server.",
	}
	cmd.AddCommand(newMCPServeCmd(g))
	return cmd
}

func newMCPServeCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start apiweave MCP server (stdio)",
		Long: "Start the apiweave MCP server using stdio transport. This lets AI assistants validate artifacts, " +
			"map APIs, check integration answers and generate plans. Logs go to stderr.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := mcpadapter.NewAPIWeaveMCPServer(g.workspace, g.log)
			return server.ServeStdio(s)
		},
	}
	return cmd
}
