package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"toast/internal/dbus"
	"toast/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server on stdio",
	Long: `Run a Model Context Protocol server exposing notification tools over
stdio. Designed to be invoked by MCP clients, not interactively.

Tools:
  send_toast    Send a desktop notification
  close_toast   Close a notification by id
  server_info   Report the daemon's identity and capabilities

Example client configuration:

  {
    "mcpServers": {
      "toast": {
        "command": "toast",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, args []string) error {
	client, err := dbus.NewClient()
	if err != nil {
		return fmt.Errorf("failed to connect to session bus: %w", err)
	}

	server := mcp.NewServer(client, version, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return server.Run(ctx)
}
