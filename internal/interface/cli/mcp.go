package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/neilberkman/escriba/cmd/escriba/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Start MCP server for editor and agent integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio so an agent can
list, read, generate and save files in your projects.

Requires github.token (or ESCRIBA_GITHUB_TOKEN). Example client config:
  {
    "mcpServers": {
      "escriba": {
        "command": "escriba",
        "args": ["serve-mcp"]
      }
    }
  }
`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace(true)
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := mcp.StartServer(mcp.Deps{
		Config: ws.cfg,
		GitHub: ws.github,
		State:  ws.state,
		DB:     ws.db,
	}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}
