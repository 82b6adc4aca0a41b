package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mpolski/tm/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server for LLM agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

This lets an MCP host such as Claude Code drive TMetric timers
natively. Configure with:

  {
    "mcpServers": {
      "tm": { "command": "tm", "args": ["mcp"] }
    }
  }

Available tools: list_projects, get_current_timer, start_timer,
stop_timer, delete_time_entry`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := getService()
		if err != nil {
			return err
		}

		// stdout belongs to the protocol; announce on stderr only.
		fmt.Fprintln(os.Stderr, "tm MCP server listening on stdio")
		return mcp.NewServer(svc).ServeStdio(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
