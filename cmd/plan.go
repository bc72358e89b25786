package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mockbird/mockbird/internal/app"
	"github.com/mockbird/mockbird/internal/config"
)

var planCmd = &cobra.Command{
	Use:   "plan \"app idea\"",
	Short: "Plan an idea without creating a project",
	Long: `Ask the model for a build plan and print it. Nothing is generated or
saved; use "mockbird new" when the plan looks right.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	idea := strings.TrimSpace(strings.Join(args, " "))

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

	p, err := a.Planner.Generate(ctx, idea, "")
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	fmt.Println(renderMarkdown(p.Markdown()))
	return nil
}
