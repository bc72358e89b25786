// Package cmd implements the mockbird command line interface.
//
// Commands:
//   - serve: run the studio HTTP server with live preview
//   - new: create a project from a one-line idea
//   - plan: plan an idea without creating anything
//   - projects: list saved projects
//   - mcp: expose projects over the Model Context Protocol on stdio
//   - version: show build information
//
// All commands load configuration the same way (flags > environment >
// config file > defaults) and log to stderr, leaving stdout for
// command output and the MCP transport.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/mockbird/mockbird/internal/config"
	"github.com/mockbird/mockbird/internal/log"
)

// bannerColor matches the studio accent.
const bannerColor = "#5EEAD4"

var bannerArt = []string{
	`███╗   ███╗  ██████╗   ██████╗ ██╗  ██╗ ██████╗  ██╗ ██████╗  ██████╗ `,
	`████╗ ████║ ██╔═══██╗ ██╔════╝ ██║ ██╔╝ ██╔══██╗ ██║ ██╔══██╗ ██╔══██╗`,
	`██╔████╔██║ ██║   ██║ ██║      █████╔╝  ██████╔╝ ██║ ██████╔╝ ██║  ██║`,
	`██║╚██╔╝██║ ██║   ██║ ██║      ██╔═██╗  ██╔══██╗ ██║ ██╔══██╗ ██║  ██║`,
	`██║ ╚═╝ ██║ ╚██████╔╝ ╚██████╗ ██║  ██╗ ██████╔╝ ██║ ██║  ██║ ██████╔╝`,
	`╚═╝     ╚═╝  ╚═════╝   ╚═════╝ ╚═╝  ╚═╝ ╚═════╝  ╚═╝ ╚═╝  ╚═╝ ╚═════╝ `,
}

// banner renders the wordmark shown on root help output.
func banner() string {
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(bannerColor))
	var b strings.Builder
	for _, line := range bannerArt {
		b.WriteString(style.Render(line))
		b.WriteByte('\n')
	}
	return b.String()
}

var rootCmd = &cobra.Command{
	Use:   "mockbird",
	Short: "Describe an app, get a working prototype",
	Long: banner() + `
mockbird turns a one-line app idea into a running single-file web
prototype. The model plans the app, generates it, and then refines it
through natural-language edits while a live preview follows along.

Start with "mockbird serve" and open the studio in a browser, or use
"mockbird new" to bootstrap a project from the terminal.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Errors are returned to main for a
// single exit path.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from configuration. Output goes
// to stderr so stdout stays clean for command results.
func newLogger(cfg *config.Config) log.Logger {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v, falling back to info\n", err)
		level = slog.LevelInfo
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}
