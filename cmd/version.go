package cmd

import (
	"github.com/spf13/cobra"
)

// Build information, injected at release time:
//
//	go build -ldflags "-X github.com/mockbird/mockbird/cmd.Version=v0.2.0 ..."
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("mockbird %s\n", Version)
		cmd.Printf("  commit: %s\n", GitCommit)
		cmd.Printf("  built:  %s\n", BuildTime)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
