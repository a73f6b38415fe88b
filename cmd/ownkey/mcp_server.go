package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forest6511/ownkey/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpServerCmd)
}

// mcpServerCmd starts the MCP server for AI coding assistant integration
var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start the MCP server for AI coding assistant integration",
	Long: `Start an MCP server over stdio that lets AI coding assistants discover
secrets without ever receiving plaintext values.

Available tools:
  - secret_list:       List secret names, optionally filtered by a glob pattern
  - secret_exists:     Check whether a secret exists
  - secret_get_masked: Get a masked secret value (e.g., "****WXYZ")

Authentication:
  Set OWNKEY_PASSWORD before starting the server, or pass --keychain-account.
  The variable is read once and immediately cleared from the environment.

Example MCP configuration:
  {
    "mcpServers": {
      "ownkey": {
        "type": "stdio",
        "command": "/path/to/ownkey",
        "args": ["mcp-server"],
        "env": {
          "OWNKEY_PASSWORD": "your-vault-password"
        }
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd.Context(), current)
	},
}

func runMCPServer(ctx context.Context, a *app) error {
	// The terminal belongs to the MCP client.
	a.prompter = nil
	a.wire()

	server, err := mcp.NewServer(a.service, mcp.ServerOptions{
		VaultPath: a.path,
		Options:   a.opts,
		Logger:    a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		// Don't report context canceled as an error
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
