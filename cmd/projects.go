package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mockbird/mockbird/internal/config"
	"github.com/mockbird/mockbird/internal/database"
	"github.com/mockbird/mockbird/internal/project"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List saved projects",
	RunE:  runProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}

// runProjects opens only the database. Listing must work without
// provider credentials, so it bypasses the full application setup.
func runProjects(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := database.Open(cfg.DatabaseFile)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	store, err := project.NewStore(db, newLogger(cfg))
	if err != nil {
		return fmt.Errorf("opening project store: %w", err)
	}
	list, err := store.List(context.Background())
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	if len(list) == 0 {
		fmt.Println(`No projects yet. Create one with "mockbird new".`)
		return nil
	}

	for _, p := range list {
		fmt.Printf("%s  %s  %s\n", p.ID, p.UpdatedAt.Local().Format("2006-01-02 15:04"), p.Title)
	}
	return nil
}
