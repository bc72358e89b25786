package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mockbird/mockbird/internal/app"
	"github.com/mockbird/mockbird/internal/config"
	"github.com/mockbird/mockbird/internal/webref"
)

var (
	newTitle     string
	newReference string
)

var newCmd = &cobra.Command{
	Use:   "new \"app idea\"",
	Short: "Create a project from an idea",
	Long: `Plan an app from a one-line idea, generate the first working version
and save it as a project. Open it afterwards with "mockbird serve".`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNew,
}

func init() {
	newCmd.Flags().StringVar(&newTitle, "title", "", "project title (default: taken from the plan)")
	newCmd.Flags().StringVar(&newReference, "reference", "", "URL to read as reference material for the plan")
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
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

	var reference string
	if newReference != "" {
		ref, err := a.Fetcher.Fetch(ctx, newReference)
		if err != nil {
			return fmt.Errorf("reading reference %q: %w", newReference, err)
		}
		reference = webref.Digest([]webref.Reference{ref})
	}

	p, err := a.Planner.Generate(ctx, idea, reference)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}
	fmt.Println(renderMarkdown(p.Markdown()))

	title := newTitle
	if title == "" {
		title = p.Name
	}
	if title == "" {
		title = a.Generator.GenerateTitle(ctx, idea)
	}

	// Stream progress to stderr so stdout stays parseable.
	fmt.Fprint(os.Stderr, "Generating")
	doc, err := a.Generator.GenerateApp(ctx, p, func(context.Context, string) error {
		fmt.Fprint(os.Stderr, ".")
		return nil
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("generating app: %w", err)
	}

	proj, err := a.Projects.Create(ctx, title, doc)
	if err != nil {
		return fmt.Errorf("saving project: %w", err)
	}

	fmt.Printf("Created %q (%s, %d bytes)\n", proj.Title, proj.ID, len(doc))
	fmt.Println(`Run "mockbird serve" to open it in the studio.`)
	return nil
}
