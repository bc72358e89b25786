package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/mockbird/mockbird/internal/app"
	"github.com/mockbird/mockbird/internal/config"
	"github.com/mockbird/mockbird/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol server on stdio",
	Long: `Expose projects to MCP clients such as coding agents and editors.
The transport speaks JSON-RPC on stdin/stdout; logs go to stderr.`,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger := newLogger(cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown cleanup failed", "error", closeErr)
		}
	}()

	server, err := mcp.NewServer(mcp.Config{
		Name:      "mockbird",
		Version:   Version,
		Logger:    logger,
		Store:     a.Projects,
		Manager:   a.Manager,
		Planner:   a.Planner,
		Generator: a.Generator,
	})
	if err != nil {
		return fmt.Errorf("initializing mcp server: %w", err)
	}

	logger.Info("mcp server listening on stdio")
	if err := server.Run(ctx, &mcpsdk.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	logger.Info("mcp server stopped")
	return nil
}
