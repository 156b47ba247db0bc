package main

import (
	"github.com/spf13/cobra"

	"github.com/metalagman/clawpm/internal/mcp"
)

const version = "0.1.0"

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			svcs, _, err := openServices()
			if err != nil {
				return err
			}
			defer svcs.Close()

			server := mcp.NewServer(svcs.tasks, svcs.links, svcs.backlog, version)
			return server.Run(cmd.Context())
		},
	}
}
