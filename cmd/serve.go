package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/mockbird/mockbird/internal/app"
	"github.com/mockbird/mockbird/internal/config"
	"github.com/mockbird/mockbird/internal/web"
)

// HTTP server timeouts. WriteTimeout and IdleTimeout are generous
// because preview streams are long-lived SSE connections.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve [addr]",
	Short: "Run the studio HTTP server",
	Long: `Serve the mockbird studio: the browser UI, the project API and the
live preview stream. The address can be given positionally or with
--addr; it defaults to the configured listen address.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (host:port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	addr := cfg.Addr
	if len(args) > 0 {
		addr = args[0]
	}
	if serveAddr != "" {
		addr = serveAddr
	}
	if err := validateAddr(addr); err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
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

	studio := web.NewServer(web.ServerConfig{
		Logger:    logger,
		Store:     a.Projects,
		Manager:   a.Manager,
		Planner:   a.Planner,
		Generator: a.Generator,
		Renderer:  a.Renderer,
		Broker:    a.Broker,
		Fetcher:   a.Fetcher,
		Tracker:   a.Tracker,
		DataDir:   cfg.DataDir,
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           studio,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("studio ready", "addr", addr, "url", "http://"+addr)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("studio server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down studio server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("studio server stopped")
	return nil
}
