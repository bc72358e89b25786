// Package mcp exposes projects over the Model Context Protocol, so MCP
// clients (editors, agents) can create, edit, and preview prototypes
// without the studio UI.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mockbird/mockbird/internal/editor"
	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/plan"
	"github.com/mockbird/mockbird/internal/project"
)

// Server wraps the MCP SDK server around the project lifecycle.
type Server struct {
	mcpServer *mcp.Server
	store     *project.Store
	manager   *editor.Manager
	planner   *plan.Generator
	generator *editor.Generator
	logger    log.Logger
	name      string
	version   string
}

// Config holds MCP server configuration.
type Config struct {
	Name    string
	Version string
	Logger  log.Logger

	Store     *project.Store
	Manager   *editor.Manager
	Planner   *plan.Generator
	Generator *editor.Generator
}

// NewServer creates an MCP server with all project tools registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Name == "" {
		return nil, errors.New("server name is required")
	}
	if cfg.Version == "" {
		return nil, errors.New("server version is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("project store is required")
	}
	if cfg.Manager == nil {
		return nil, errors.New("session manager is required")
	}
	if cfg.Planner == nil {
		return nil, errors.New("planner is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("generator is required")
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		}, nil),
		store:     cfg.Store,
		manager:   cfg.Manager,
		planner:   cfg.Planner,
		generator: cfg.Generator,
		logger:    cfg.Logger,
		name:      cfg.Name,
		version:   cfg.Version,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return s, nil
}

// Run serves the MCP protocol on the given transport. Blocking; returns
// when the transport closes or ctx is cancelled.
func (s *Server) Run(ctx context.Context, transport mcp.Transport) error {
	return s.mcpServer.Run(ctx, transport)
}

// jsonResult marshals v into a successful text result. Tool outputs are
// JSON so clients can parse them without scraping prose.
func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}, nil, nil
}

// textResult returns raw text, used where the payload is a document
// rather than structured data.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult reports a tool-level failure the client model can act on.
// Infrastructure failures propagate as Go errors instead.
func errorResult(code, message string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("[%s] %s", code, message)}},
		IsError: true,
	}, nil, nil
}
