// Package web provides the studio HTTP server and its handlers.
package web

import (
	"net/http"

	"github.com/mockbird/mockbird/internal/editor"
	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/plan"
	"github.com/mockbird/mockbird/internal/preview"
	"github.com/mockbird/mockbird/internal/project"
	"github.com/mockbird/mockbird/internal/web/handlers"
	"github.com/mockbird/mockbird/internal/web/static"
	"github.com/mockbird/mockbird/internal/webref"
	"github.com/mockbird/mockbird/internal/workspace"
)

// Generation endpoints call a model per request, so they get a hard
// per-IP budget: one request every two seconds with a small burst that
// absorbs double-clicks.
const (
	generationRatePerSecond = 0.5
	generationBurst         = 3
)

// Server is the studio HTTP server: the embedded single-page UI, the
// project API, and the per-project SSE event stream.
type Server struct {
	logger  log.Logger
	handler http.Handler
}

// ServerConfig carries the components the routes are built from.
// Fetcher and Tracker may be nil; DataDir may be empty.
type ServerConfig struct {
	Logger    log.Logger
	Store     *project.Store
	Manager   *editor.Manager
	Planner   *plan.Generator
	Generator *editor.Generator
	Renderer  *preview.Renderer
	Broker    *preview.Broker
	Fetcher   *webref.Fetcher
	Tracker   *workspace.Tracker
	DataDir   string
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) *Server {
	mux := http.NewServeMux()

	limit := limitMiddleware(newRateLimiter(generationRatePerSecond, generationBurst), cfg.Logger)

	projects := handlers.NewProjects(handlers.ProjectsConfig{
		Logger:    cfg.Logger,
		Store:     cfg.Store,
		Manager:   cfg.Manager,
		Planner:   cfg.Planner,
		Generator: cfg.Generator,
		Renderer:  cfg.Renderer,
		Broker:    cfg.Broker,
		Fetcher:   cfg.Fetcher,
		Tracker:   cfg.Tracker,
		DataDir:   cfg.DataDir,
	})
	projects.RegisterRoutes(mux, limit)

	edits := handlers.NewEdits(handlers.EditsConfig{
		Logger:   cfg.Logger,
		Store:    cfg.Store,
		Projects: projects,
	})
	edits.RegisterRoutes(mux, limit)

	plans := handlers.NewPlans(handlers.PlansConfig{
		Logger:  cfg.Logger,
		Planner: cfg.Planner,
		Fetcher: cfg.Fetcher,
	})
	plans.RegisterRoutes(mux, limit)

	handlers.NewHealth(cfg.Logger).RegisterRoutes(mux)

	mux.Handle("GET /", static.Handler())

	var handler http.Handler = mux
	handler = loggingMiddleware(cfg.Logger)(handler)
	handler = recoveryMiddleware(cfg.Logger)(handler)

	return &Server{logger: cfg.Logger, handler: handler}
}

// ServeHTTP implements http.Handler with baseline security headers.
// The preview route overrides the CSP with its own sandbox policy.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setSecurityHeaders(w)
	s.handler.ServeHTTP(w, r)
}

// setSecurityHeaders applies headers for the studio page. The page
// carries its script and styles inline, and frames the preview from
// the same origin.
func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy",
		"default-src 'self'; "+
			"script-src 'self' 'unsafe-inline'; "+
			"style-src 'self' 'unsafe-inline'; "+
			"frame-src 'self'; "+
			"connect-src 'self'")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}
