package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mockbird/mockbird/internal/bundle"
	"github.com/mockbird/mockbird/internal/editor"
	"github.com/mockbird/mockbird/internal/plan"
	"github.com/mockbird/mockbird/internal/project"
)

// ListProjectsInput takes no parameters; every project is returned.
type ListProjectsInput struct{}

// GetProjectInput identifies one project.
type GetProjectInput struct {
	ProjectID string `json:"project_id" jsonschema:"ID of the project, as returned by list_projects"`
}

// CreateProjectInput describes the app to bootstrap.
type CreateProjectInput struct {
	Idea  string `json:"idea" jsonschema:"One-paragraph description of the web app to build"`
	Title string `json:"title,omitempty" jsonschema:"Optional project title; derived from the plan when empty"`
}

// EditProjectInput carries one natural-language change request.
type EditProjectInput struct {
	ProjectID   string `json:"project_id" jsonschema:"ID of the project to edit"`
	Instruction string `json:"instruction" jsonschema:"Natural-language description of the change to apply"`
}

// PreviewProjectInput identifies the project to render.
type PreviewProjectInput struct {
	ProjectID string `json:"project_id" jsonschema:"ID of the project to preview"`
}

// projectSummary is how a project appears in tool output. The document
// itself is served by preview_project, not repeated here.
type projectSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toSummary(p project.Project) projectSummary {
	return projectSummary{
		ID:        p.ID,
		Title:     p.Title,
		CreatedAt: p.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt: p.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// fileSummary describes one virtual file without its content.
type fileSummary struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Bytes    int    `json:"bytes"`
}

// registerTools registers the five project tools.
func (s *Server) registerTools() error {
	listSchema, err := jsonschema.For[ListProjectsInput](nil)
	if err != nil {
		return fmt.Errorf("schema for list_projects: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_projects",
		Description: "List every saved project with its ID, title, and timestamps.",
		InputSchema: listSchema,
	}, s.ListProjects)

	getSchema, err := jsonschema.For[GetProjectInput](nil)
	if err != nil {
		return fmt.Errorf("schema for get_project: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_project",
		Description: "Get one project's metadata and the files that make up its document.",
		InputSchema: getSchema,
	}, s.GetProject)

	createSchema, err := jsonschema.For[CreateProjectInput](nil)
	if err != nil {
		return fmt.Errorf("schema for create_project: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "create_project",
		Description: "Create a project from an app idea: plan it, generate the first working prototype, and save it.",
		InputSchema: createSchema,
	}, s.CreateProject)

	editSchema, err := jsonschema.For[EditProjectInput](nil)
	if err != nil {
		return fmt.Errorf("schema for edit_project: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "edit_project",
		Description: "Apply a natural-language change to a project's prototype and save the result. A failed edit leaves the project untouched.",
		InputSchema: editSchema,
	}, s.EditProject)

	previewSchema, err := jsonschema.For[PreviewProjectInput](nil)
	if err != nil {
		return fmt.Errorf("schema for preview_project: %w", err)
	}
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "preview_project",
		Description: "Return the project's current HTML document, exactly as the preview pane renders it.",
		InputSchema: previewSchema,
	}, s.PreviewProject)

	return nil
}

// ListProjects handles the list_projects tool call.
func (s *Server) ListProjects(ctx context.Context, req *mcp.CallToolRequest, in ListProjectsInput) (*mcp.CallToolResult, any, error) {
	projects, err := s.store.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list projects: %w", err)
	}

	summaries := make([]projectSummary, 0, len(projects))
	for _, p := range projects {
		summaries = append(summaries, toSummary(p))
	}
	return jsonResult(map[string]any{"projects": summaries, "count": len(summaries)})
}

// GetProject handles the get_project tool call.
func (s *Server) GetProject(ctx context.Context, req *mcp.CallToolRequest, in GetProjectInput) (*mcp.CallToolResult, any, error) {
	p, err := s.store.Get(ctx, in.ProjectID)
	if errors.Is(err, project.ErrNotFound) {
		return errorResult("NOT_FOUND", "no project with ID "+in.ProjectID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get project: %w", err)
	}

	files := bundle.Extract(p.Code)
	summaries := make([]fileSummary, 0, len(files))
	for _, f := range files {
		summaries = append(summaries, fileSummary{
			Name:     f.Name,
			Language: string(f.Language),
			Bytes:    len(f.Content),
		})
	}
	return jsonResult(map[string]any{"project": toSummary(p), "files": summaries})
}

// CreateProject handles the create_project tool call: plan the idea,
// pick a title, generate the first document, persist.
func (s *Server) CreateProject(ctx context.Context, req *mcp.CallToolRequest, in CreateProjectInput) (*mcp.CallToolResult, any, error) {
	p, err := s.planner.Generate(ctx, in.Idea, "")
	if err != nil {
		if errors.Is(err, plan.ErrEmptyIdea) {
			return errorResult("EMPTY_IDEA", "describe the app to build")
		}
		return errorResult("PLAN_FAILED", err.Error())
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = p.Name
	}
	if title == "" {
		title = s.generator.GenerateTitle(ctx, in.Idea)
	}

	doc, err := s.generator.GenerateApp(ctx, p, nil)
	if err != nil {
		return errorResult("GENERATION_FAILED", err.Error())
	}

	proj, err := s.store.Create(ctx, title, doc)
	if err != nil {
		return nil, nil, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info("project created", "project_id", proj.ID, "title", proj.Title, "transport", "mcp")
	return jsonResult(map[string]any{"project": toSummary(proj), "plan": p})
}

// EditProject handles the edit_project tool call. The instruction lands
// in history before the request starts; a successful merge is saved so
// the change survives the MCP process.
func (s *Server) EditProject(ctx context.Context, req *mcp.CallToolRequest, in EditProjectInput) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(in.Instruction) == "" {
		return errorResult("EMPTY_INSTRUCTION", "instruction must not be empty")
	}

	sess, err := s.manager.Open(ctx, in.ProjectID)
	if errors.Is(err, project.ErrNotFound) {
		return errorResult("NOT_FOUND", "no project with ID "+in.ProjectID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open session: %w", err)
	}

	if _, err := s.store.AppendMessage(ctx, in.ProjectID, project.RoleUser, in.Instruction); err != nil {
		return nil, nil, fmt.Errorf("record instruction: %w", err)
	}

	if err := sess.Apply(ctx, in.Instruction, nil); err != nil {
		return errorResult(editErrorCode(err), err.Error())
	}

	doc, err := s.manager.Save(ctx, in.ProjectID)
	if err != nil {
		return nil, nil, fmt.Errorf("save project: %w", err)
	}

	s.logger.Info("project edited", "project_id", in.ProjectID, "document_bytes", len(doc), "transport", "mcp")
	return jsonResult(map[string]any{
		"project_id":     in.ProjectID,
		"document_bytes": len(doc),
		"files":          len(sess.Files()),
	})
}

// PreviewProject handles the preview_project tool call. An open session
// wins over the persisted record so unsaved edits show up.
func (s *Server) PreviewProject(ctx context.Context, req *mcp.CallToolRequest, in PreviewProjectInput) (*mcp.CallToolResult, any, error) {
	if sess, ok := s.manager.Get(in.ProjectID); ok {
		return textResult(sess.Bundle())
	}

	p, err := s.store.Get(ctx, in.ProjectID)
	if errors.Is(err, project.ErrNotFound) {
		return errorResult("NOT_FOUND", "no project with ID "+in.ProjectID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get project: %w", err)
	}
	return textResult(p.Code)
}

// editErrorCode maps edit-cycle failures to machine-readable codes, the
// same taxonomy the HTTP edit stream uses.
func editErrorCode(err error) string {
	switch {
	case errors.Is(err, editor.ErrBusy):
		return "BUSY"
	case errors.Is(err, editor.ErrClosed):
		return "SESSION_CLOSED"
	case errors.Is(err, editor.ErrEmptyInstruction):
		return "EMPTY_INSTRUCTION"
	case errors.Is(err, editor.ErrEmptyResponse), errors.Is(err, editor.ErrResponseTooShort):
		return "UNUSABLE_RESPONSE"
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	default:
		return "EDIT_FAILED"
	}
}
