package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mockbird/mockbird/internal/project"
	"github.com/mockbird/mockbird/internal/testutil"
)

// protocolEnv is a Server connected to an SDK client over in-memory
// transports, with the backing store and mock backend exposed so tests
// can seed and verify state.
type protocolEnv struct {
	session *mcp.ClientSession
	store   *project.Store
	mock    *testutil.MockClient
}

func connect(t *testing.T) *protocolEnv {
	t.Helper()

	cfg, store, mock, _ := testComponents(t)
	server, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}

	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.mcpServer.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server.Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client.Connect() error = %v", err)
	}
	t.Cleanup(func() { _ = clientSession.Close() })

	return &protocolEnv{session: clientSession, store: store, mock: mock}
}

func (e *protocolEnv) call(t *testing.T, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := e.session.CallTool(t.Context(), &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%q) error = %v", name, err)
	}
	return result
}

// toolText extracts the single text content of a result.
func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] type = %T, want *mcp.TextContent", result.Content[0])
	}
	return text.Text
}

// toolJSON decodes a result's text content as a JSON object.
func toolJSON(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var parsed map[string]any
	if err := json.Unmarshal([]byte(toolText(t, result)), &parsed); err != nil {
		t.Fatalf("parsing tool JSON: %v", err)
	}
	return parsed
}

func TestProtocolListTools(t *testing.T) {
	env := connect(t)

	result, err := env.session.ListTools(t.Context(), nil)
	if err != nil {
		t.Fatalf("ListTools() error = %v", err)
	}

	var names []string
	for _, tool := range result.Tools {
		names = append(names, tool.Name)
		if tool.Description == "" {
			t.Errorf("tool %q has empty description", tool.Name)
		}
	}
	sort.Strings(names)

	want := []string{"create_project", "edit_project", "get_project", "list_projects", "preview_project"}
	if len(names) != len(want) {
		t.Fatalf("ListTools() returned %v, want %v", names, want)
	}
	for i, got := range names {
		if got != want[i] {
			t.Errorf("tool[%d] = %q, want %q", i, got, want[i])
		}
	}
}

func TestProtocolListProjects(t *testing.T) {
	env := connect(t)
	ctx := t.Context()
	if _, err := env.store.Create(ctx, "First", mcpTestDoc); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := env.store.Create(ctx, "Second", mcpTestDoc); err != nil {
		t.Fatalf("seed: %v", err)
	}

	result := env.call(t, "list_projects", nil)
	if result.IsError {
		t.Fatalf("list_projects returned error: %s", toolText(t, result))
	}

	parsed := toolJSON(t, result)
	if count, _ := parsed["count"].(float64); count != 2 {
		t.Errorf("count = %v, want 2", parsed["count"])
	}
	projects, _ := parsed["projects"].([]any)
	if len(projects) != 2 {
		t.Fatalf("projects = %d entries, want 2", len(projects))
	}
	first, _ := projects[0].(map[string]any)
	if first["id"] == "" || first["title"] == "" {
		t.Errorf("project summary incomplete: %v", first)
	}
}

func TestProtocolGetProject(t *testing.T) {
	env := connect(t)
	seeded, err := env.store.Create(t.Context(), "Pocket Garden", mcpTestDoc)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	result := env.call(t, "get_project", map[string]any{"project_id": seeded.ID})
	if result.IsError {
		t.Fatalf("get_project returned error: %s", toolText(t, result))
	}

	parsed := toolJSON(t, result)
	proj, _ := parsed["project"].(map[string]any)
	if proj["title"] != "Pocket Garden" {
		t.Errorf("title = %v", proj["title"])
	}

	files, _ := parsed["files"].([]any)
	if len(files) != 3 {
		t.Fatalf("files = %d entries, want root + style + script", len(files))
	}
	root, _ := files[0].(map[string]any)
	if root["name"] != "index.html" || root["language"] != "markup" {
		t.Errorf("files[0] = %v, want the root document", root)
	}
}

func TestProtocolGetProjectMissing(t *testing.T) {
	env := connect(t)

	result := env.call(t, "get_project", map[string]any{"project_id": "no-such-id"})
	if !result.IsError {
		t.Fatal("get_project for a missing ID did not return an error result")
	}
	if text := toolText(t, result); !strings.Contains(text, "NOT_FOUND") {
		t.Errorf("error text = %q, want NOT_FOUND code", text)
	}
}

func TestProtocolCreateProject(t *testing.T) {
	env := connect(t)
	env.mock.AddResponse("design a build plan", mcpPlanJSON)
	env.mock.AddResponse("build the first working version", mcpTestDoc)

	result := env.call(t, "create_project", map[string]any{"idea": "a watering tracker for houseplants"})
	if result.IsError {
		t.Fatalf("create_project returned error: %s", toolText(t, result))
	}

	parsed := toolJSON(t, result)
	proj, _ := parsed["project"].(map[string]any)
	if proj["title"] != "Pocket Garden" {
		t.Errorf("title = %v, want the plan name", proj["title"])
	}

	id, _ := proj["id"].(string)
	stored, err := env.store.Get(t.Context(), id)
	if err != nil {
		t.Fatalf("created project not persisted: %v", err)
	}
	if stored.Code != mcpTestDoc {
		t.Error("persisted code differs from the generated document")
	}
}

func TestProtocolCreateProjectPlanFailure(t *testing.T) {
	env := connect(t)
	env.mock.AddResponse("design a build plan", "not json at all")

	result := env.call(t, "create_project", map[string]any{"idea": "anything"})
	if !result.IsError {
		t.Fatal("create_project with an unusable plan did not return an error result")
	}
	if text := toolText(t, result); !strings.Contains(text, "PLAN_FAILED") {
		t.Errorf("error text = %q, want PLAN_FAILED code", text)
	}

	projects, err := env.store.List(t.Context())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(projects) != 0 {
		t.Errorf("failed create persisted %d projects", len(projects))
	}
}

func TestProtocolEditProject(t *testing.T) {
	env := connect(t)
	ctx := t.Context()
	seeded, err := env.store.Create(ctx, "Pocket Garden", mcpTestDoc)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	env.mock.AddResponse("make it a night garden", mcpEditedDoc)

	result := env.call(t, "edit_project", map[string]any{
		"project_id":  seeded.ID,
		"instruction": "make it a night garden",
	})
	if result.IsError {
		t.Fatalf("edit_project returned error: %s", toolText(t, result))
	}

	parsed := toolJSON(t, result)
	if bytes, _ := parsed["document_bytes"].(float64); int(bytes) != len(mcpEditedDoc) {
		t.Errorf("document_bytes = %v, want %d", parsed["document_bytes"], len(mcpEditedDoc))
	}

	stored, err := env.store.Get(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Code != mcpEditedDoc {
		t.Error("edit was not saved back to the project record")
	}

	messages, err := env.store.Messages(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(messages) != 1 || messages[0].Role != project.RoleUser {
		t.Errorf("history after success = %d messages, want just the instruction", len(messages))
	}

	// The session stays open after the edit, so preview serves it.
	preview := env.call(t, "preview_project", map[string]any{"project_id": seeded.ID})
	if got := toolText(t, preview); got != mcpEditedDoc {
		t.Errorf("preview after edit = %d bytes, want the edited document", len(got))
	}
}

func TestProtocolEditProjectFailure(t *testing.T) {
	env := connect(t)
	ctx := t.Context()
	seeded, err := env.store.Create(ctx, "Pocket Garden", mcpTestDoc)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	env.mock.AddError("uproot everything", errors.New("model unavailable"))

	result := env.call(t, "edit_project", map[string]any{
		"project_id":  seeded.ID,
		"instruction": "uproot everything",
	})
	if !result.IsError {
		t.Fatal("failed edit did not return an error result")
	}

	stored, err := env.store.Get(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if stored.Code != mcpTestDoc {
		t.Error("failed edit changed the saved document")
	}

	messages, err := env.store.Messages(ctx, seeded.ID)
	if err != nil {
		t.Fatalf("Messages() error = %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("history after failure = %d messages, want instruction + failure notice", len(messages))
	}
	if messages[1].Role != project.RoleModel {
		t.Errorf("messages[1].Role = %q, want model", messages[1].Role)
	}
}

func TestProtocolPreviewProject(t *testing.T) {
	env := connect(t)
	seeded, err := env.store.Create(t.Context(), "Pocket Garden", mcpTestDoc)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	result := env.call(t, "preview_project", map[string]any{"project_id": seeded.ID})
	if result.IsError {
		t.Fatalf("preview_project returned error: %s", toolText(t, result))
	}
	if got := toolText(t, result); got != mcpTestDoc {
		t.Errorf("preview = %d bytes, want the saved document verbatim", len(got))
	}
}

func TestProtocolUnknownTool(t *testing.T) {
	env := connect(t)

	_, err := env.session.CallTool(t.Context(), &mcp.CallToolParams{Name: "drop_database"})
	if err == nil {
		t.Fatal("CallTool(drop_database) expected error, got nil")
	}
	if !strings.Contains(err.Error(), "drop_database") {
		t.Errorf("error = %q, want to contain the tool name", err)
	}
}
