package mcp

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/mockbird/mockbird/internal/database"
	"github.com/mockbird/mockbird/internal/editor"
	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/plan"
	"github.com/mockbird/mockbird/internal/project"
	"github.com/mockbird/mockbird/internal/testutil"
)

const mcpTestDoc = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Pocket Garden</title>
<style>body { background: #f0fdf4; }</style>
</head>
<body>
<h1>Pocket Garden</h1>
<script>console.log("planted");</script>
</body>
</html>`

const mcpEditedDoc = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Pocket Garden</title>
<style>body { background: #1e293b; color: #f0fdf4; }</style>
</head>
<body>
<h1>Pocket Garden at night</h1>
<script>console.log("planted");</script>
</body>
</html>`

const mcpPlanJSON = `{
  "name": "Pocket Garden",
  "summary": "Track watering schedules for houseplants. One page, works offline.",
  "features": [
    {"title": "Plant list", "detail": "Add plants with a name and watering interval"},
    {"title": "Due today", "detail": "Highlight plants that need water"},
    {"title": "Water log", "detail": "One tap marks a plant as watered"}
  ],
  "style": {"palette": ["#f0fdf4", "#166534"], "tone": "calm and leafy"}
}`

// testComponents builds the full dependency set for a Server against a
// temp database and a scripted backend.
func testComponents(t *testing.T) (Config, *project.Store, *testutil.MockClient, *editor.Manager) {
	t.Helper()
	logger := log.NewNop()

	db, err := database.Open(filepath.Join(t.TempDir(), "mcp.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store, err := project.NewStore(db, logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	mock := testutil.NewMockClient(mcpTestDoc)

	manager, err := editor.NewManager(editor.ManagerConfig{
		Projects: store,
		Client:   mock,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(manager.CloseAll)

	planner, err := plan.New(plan.Config{Client: mock, Logger: logger})
	if err != nil {
		t.Fatalf("new planner: %v", err)
	}
	generator, err := editor.NewGenerator(editor.GeneratorConfig{Client: mock, Logger: logger})
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}

	cfg := Config{
		Name:      "mockbird-test",
		Version:   "0.0.1",
		Logger:    logger,
		Store:     store,
		Manager:   manager,
		Planner:   planner,
		Generator: generator,
	}
	return cfg, store, mock, manager
}

func TestNewServer(t *testing.T) {
	cfg, _, _, _ := testComponents(t)

	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	if server.mcpServer == nil {
		t.Error("mcpServer is nil")
	}
	if server.name != "mockbird-test" || server.version != "0.0.1" {
		t.Errorf("identity = %s/%s", server.name, server.version)
	}
}

func TestNewServerValidation(t *testing.T) {
	valid, _, _, _ := testComponents(t)

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing name", func(c *Config) { c.Name = "" }, "server name is required"},
		{"missing version", func(c *Config) { c.Version = "" }, "server version is required"},
		{"missing logger", func(c *Config) { c.Logger = nil }, "logger is required"},
		{"missing store", func(c *Config) { c.Store = nil }, "project store is required"},
		{"missing manager", func(c *Config) { c.Manager = nil }, "session manager is required"},
		{"missing planner", func(c *Config) { c.Planner = nil }, "planner is required"},
		{"missing generator", func(c *Config) { c.Generator = nil }, "generator is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			_, err := NewServer(cfg)
			if err == nil {
				t.Fatal("NewServer() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewServer() error = %q, want to contain %q", err, tt.wantErr)
			}
		})
	}
}
