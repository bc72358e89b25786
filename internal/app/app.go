// Package app assembles the application from its parts.
//
// Setup builds everything the studio needs in dependency order: tracing,
// the generation backend, the project database, the edit-session manager
// and the preview pipeline. The resulting App is shared by every entry
// point; Close tears it down in reverse.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/firebase/genkit/go/plugins/ollama"

	"github.com/mockbird/mockbird/internal/backend"
	"github.com/mockbird/mockbird/internal/config"
	"github.com/mockbird/mockbird/internal/database"
	"github.com/mockbird/mockbird/internal/editor"
	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/observability"
	"github.com/mockbird/mockbird/internal/plan"
	"github.com/mockbird/mockbird/internal/preview"
	"github.com/mockbird/mockbird/internal/project"
	"github.com/mockbird/mockbird/internal/security"
	"github.com/mockbird/mockbird/internal/webref"
	"github.com/mockbird/mockbird/internal/workspace"
)

// otelFlushTimeout bounds the final span flush during shutdown.
const otelFlushTimeout = 5 * time.Second

// App is the application container.
type App struct {
	Config *config.Config
	Logger log.Logger

	DB       *sql.DB
	Projects *project.Store

	// Client is the raw provider client. The edit cycle uses it
	// directly so a failed edit surfaces immediately instead of
	// retrying behind the user's back.
	Client backend.Client

	Planner   *plan.Generator
	Generator *editor.Generator
	Manager   *editor.Manager

	Broker   *preview.Broker
	Renderer *preview.Renderer

	Fetcher *webref.Fetcher

	// Tracker mirrors the open project to disk. Nil unless a
	// workspace directory is configured.
	Tracker *workspace.Tracker

	otelShutdown func(context.Context) error
}

// Setup creates and initializes the application.
// Returns an App with embedded cleanup; call Close to release.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	// On error, release everything already initialized.
	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	// Tracing must be registered before genkit.Init so generation spans
	// land on the exporter.
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.Setup(ctx, observability.Config{
			Endpoint:    cfg.Telemetry.Endpoint,
			Environment: cfg.Telemetry.Environment,
			ServiceName: cfg.Telemetry.ServiceName,
		})
		if err != nil {
			return nil, fmt.Errorf("setting up tracing: %w", err)
		}
		a.otelShutdown = shutdown
	}

	client, err := provideClient(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Client = client

	db, err := database.Open(cfg.DatabaseFile)
	if err != nil {
		return nil, err
	}
	a.DB = db
	if err := database.Migrate(db); err != nil {
		return nil, err
	}

	projects, err := project.NewStore(db, logger)
	if err != nil {
		return nil, err
	}
	a.Projects = projects

	a.Broker = preview.NewBroker()
	a.Renderer = preview.NewRenderer(a.Broker, cfg.PreviewDebounce, logger)

	if cfg.WorkspaceDir != "" {
		a.Tracker = workspace.NewTracker(cfg.WorkspaceDir, 0, logger)
	}

	manager, err := editor.NewManager(editor.ManagerConfig{
		Projects:         projects,
		Client:           client,
		Logger:           logger,
		OnMutate:         a.onMutate,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		MinResponseBytes: cfg.MinResponseBytes,
	})
	if err != nil {
		return nil, err
	}
	a.Manager = manager

	// Plan and first-generation calls are one-shot, so they get the
	// reliability wrapper: retry, circuit breaker, rate limit.
	reliable := backend.NewReliable(client, backend.ReliableConfig{
		RequestsPerMin: cfg.RequestsPerMin,
	}, logger)

	planner, err := plan.New(plan.Config{
		Client:      reliable,
		Logger:      logger,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	a.Planner = planner

	generator, err := editor.NewGenerator(editor.GeneratorConfig{
		Client:           reliable,
		Logger:           logger,
		Temperature:      cfg.Temperature,
		MaxTokens:        cfg.MaxTokens,
		MinResponseBytes: cfg.MinResponseBytes,
	})
	if err != nil {
		return nil, err
	}
	a.Generator = generator

	fetcher, err := webref.New(webref.Config{
		Validator: security.NewURL(),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	a.Fetcher = fetcher

	return a, nil
}

// onMutate fans a session mutation out to the preview debouncer and,
// when a workspace is configured, the disk mirror.
func (a *App) onMutate(projectID string) {
	if a.Renderer != nil {
		a.Renderer.Notify(projectID)
	}
	if a.Tracker != nil {
		a.Tracker.Export(projectID)
	}
}

// Close gracefully shuts down all resources in reverse setup order.
func (a *App) Close() error {
	if a.Manager != nil {
		a.Manager.CloseAll()
	}
	if a.Tracker != nil {
		a.Tracker.Close()
	}
	if a.Renderer != nil {
		a.Renderer.Close()
	}
	if a.Broker != nil {
		a.Broker.Close()
	}

	var errs []error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing database: %w", err))
		}
		a.DB = nil
	}
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otelFlushTimeout)
		if err := a.otelShutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracer provider: %w", err))
		}
		cancel()
		a.otelShutdown = nil
	}
	return errors.Join(errs...)
}

// provideClient builds the generation client for the configured
// provider. Anthropic talks to its own SDK; everything else goes
// through genkit.
func provideClient(ctx context.Context, cfg *config.Config, logger log.Logger) (backend.Client, error) {
	if cfg.Provider == config.ProviderAnthropic {
		return backend.NewAnthropic(cfg.AnthropicAPIKey, cfg.ModelName, logger)
	}

	g, err := provideGenkit(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return backend.NewGenkit(g, cfg.FullModelName(), logger)
}

// provideGenkit initializes genkit with the configured provider plugin.
// Tracing setup must already have run so the TracerProvider is ready.
func provideGenkit(ctx context.Context, cfg *config.Config, logger log.Logger) (*genkit.Genkit, error) {
	switch cfg.Provider {
	case config.ProviderOllama:
		plugin := &ollama.Ollama{ServerAddress: cfg.OllamaHost}
		g := genkit.Init(ctx, genkit.WithPlugins(plugin))
		if g == nil {
			return nil, errors.New("initializing genkit with ollama provider")
		}
		// Ollama requires explicit model registration, no auto-discovery.
		plugin.DefineModel(g, ollama.ModelDefinition{
			Name: cfg.ModelName,
			Type: "chat",
		}, nil)
		logger.Info("initialized genkit",
			"provider", config.ProviderOllama, "model", cfg.ModelName, "host", cfg.OllamaHost)
		return g, nil

	case config.ProviderOpenAI:
		g := genkit.Init(ctx, genkit.WithPlugins(&openai.OpenAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with openai provider")
		}
		logger.Info("initialized genkit",
			"provider", config.ProviderOpenAI, "model", cfg.ModelName)
		return g, nil

	default: // gemini
		g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
		if g == nil {
			return nil, errors.New("initializing genkit with gemini provider")
		}
		logger.Info("initialized genkit",
			"provider", cfg.Provider, "model", cfg.ModelName)
		return g, nil
	}
}
