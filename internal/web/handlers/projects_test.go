package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/mockbird/mockbird/internal/plan"
	"github.com/mockbird/mockbird/internal/project"
)

func TestCreateProject(t *testing.T) {
	env := newTestEnv(t)
	env.primeGeneration()

	rec := env.do(t, http.MethodPost, "/api/projects", map[string]string{
		"idea": "an app to organize recipes",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Project project.Project `json:"project"`
		Plan    plan.Plan       `json:"plan"`
	}
	decodeBody(t, rec, &resp)

	if resp.Project.Title != "Recipe Box" {
		t.Errorf("Title = %q, want plan name", resp.Project.Title)
	}
	if resp.Project.Code != testDoc {
		t.Errorf("Code not persisted, got %d bytes", len(resp.Project.Code))
	}
	if len(resp.Plan.Features) != 3 {
		t.Errorf("plan features = %d, want 3", len(resp.Plan.Features))
	}

	stored, err := env.store.Get(t.Context(), resp.Project.ID)
	if err != nil {
		t.Fatalf("Get stored project: %v", err)
	}
	if stored.Code != testDoc {
		t.Error("stored code differs from response")
	}
}

func TestCreateProjectExplicitTitleWins(t *testing.T) {
	env := newTestEnv(t)
	env.primeGeneration()

	rec := env.do(t, http.MethodPost, "/api/projects", map[string]string{
		"idea":  "an app to organize recipes",
		"title": "My Kitchen",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Project project.Project `json:"project"`
	}
	decodeBody(t, rec, &resp)
	if resp.Project.Title != "My Kitchen" {
		t.Errorf("Title = %q, want request title", resp.Project.Title)
	}
}

func TestCreateProjectEmptyIdea(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/projects", map[string]string{"idea": ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_REQUEST" {
		t.Errorf("code = %q", code)
	}
}

func TestCreateProjectPlanFailure(t *testing.T) {
	env := newTestEnv(t)
	env.mock.AddError("design a build plan", errors.New("connection refused"))

	rec := env.do(t, http.MethodPost, "/api/projects", map[string]string{
		"idea": "an app to organize recipes",
	})
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	if code := errorCode(t, rec); code != "PLAN_FAILED" {
		t.Errorf("code = %q", code)
	}
}

func TestGetProject(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodGet, "/api/projects/"+proj.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Project project.Project `json:"project"`
	}
	decodeBody(t, rec, &resp)
	if resp.Project.ID != proj.ID {
		t.Errorf("ID = %q, want %q", resp.Project.ID, proj.ID)
	}
}

func TestGetProjectNotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/projects/b3bb9d0a-66f9-4ba2-9df1-6ba71cdc0001", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != "NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}

func TestListProjects(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, testDoc)
	env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodGet, "/api/projects", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Projects []project.Project `json:"projects"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Projects) != 2 {
		t.Errorf("projects = %d, want 2", len(resp.Projects))
	}
}

func TestRenameProject(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodPut, "/api/projects/"+proj.ID, map[string]string{"title": "Renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	stored, err := env.store.Get(t.Context(), proj.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Title != "Renamed" {
		t.Errorf("Title = %q", stored.Title)
	}
}

func TestUpdateSavesOpenSession(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	// Open the session and change a file through the API.
	rec := env.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/files", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("files status = %d", rec.Code)
	}
	var files struct {
		Files []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"files"`
	}
	decodeBody(t, rec, &files)
	var styleID string
	for _, f := range files.Files {
		if f.Name == "styles.css" {
			styleID = f.ID
		}
	}
	if styleID == "" {
		t.Fatal("no style file extracted")
	}

	rec = env.do(t, http.MethodPut, "/api/projects/"+proj.ID+"/files/"+styleID, map[string]string{
		"content": "body { color: teal; }",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update file status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Save through the project update route.
	rec = env.do(t, http.MethodPut, "/api/projects/"+proj.ID, map[string]string{})
	if rec.Code != http.StatusOK {
		t.Fatalf("save status = %d, body %s", rec.Code, rec.Body.String())
	}

	stored, err := env.store.Get(t.Context(), proj.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !strings.Contains(stored.Code, "color: teal") {
		t.Error("saved code missing updated style content")
	}
}

func TestDeleteProject(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodDelete, "/api/projects/"+proj.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodGet, "/api/projects/"+proj.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("after delete status = %d, want 404", rec.Code)
	}
	if rec := env.do(t, http.MethodDelete, "/api/projects/"+proj.ID, nil); rec.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", rec.Code)
	}
}

func TestListFiles(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/files", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Files []struct {
			ID       string `json:"id"`
			Name     string `json:"name"`
			Language string `json:"language"`
		} `json:"files"`
		ActiveID string `json:"active_id"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Files) != 3 {
		t.Fatalf("files = %d, want root, style, script", len(resp.Files))
	}
	if resp.Files[0].Name != "index.html" {
		t.Errorf("first file = %q, want root", resp.Files[0].Name)
	}
	if resp.ActiveID != resp.Files[0].ID {
		t.Errorf("active = %q, want root id %q", resp.ActiveID, resp.Files[0].ID)
	}
}

func TestCreateFileDuplicateRoot(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/files", map[string]string{
		"name": "index.html",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "DUPLICATE_ROOT" {
		t.Errorf("code = %q", code)
	}
}

func TestCreateFileInvalidName(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodPost, "/api/projects/"+proj.ID+"/files", map[string]string{
		"name": "../styles.css",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_NAME" {
		t.Errorf("code = %q", code)
	}
}

func TestUpdateFileNotFound(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodPut, "/api/projects/"+proj.ID+"/files/nope", map[string]string{
		"content": "x",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if code := errorCode(t, rec); code != "FILE_NOT_FOUND" {
		t.Errorf("code = %q", code)
	}
}

func TestDeleteRootFileRejected(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/files", nil)
	var resp struct {
		Files []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"files"`
	}
	decodeBody(t, rec, &resp)

	rec = env.do(t, http.MethodDelete, "/api/projects/"+proj.ID+"/files/"+resp.Files[0].ID, nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if code := errorCode(t, rec); code != "ROOT_FILE" {
		t.Errorf("code = %q", code)
	}
}

func TestActivateFile(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/files", nil)
	var resp struct {
		Files []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"files"`
	}
	decodeBody(t, rec, &resp)
	var scriptID string
	for _, f := range resp.Files {
		if f.Name == "script.js" {
			scriptID = f.ID
		}
	}
	if scriptID == "" {
		t.Fatal("no script file extracted")
	}

	rec = env.do(t, http.MethodPut, "/api/projects/"+proj.ID+"/files/"+scriptID+"/activate", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var active struct {
		ActiveID string `json:"active_id"`
	}
	decodeBody(t, rec, &active)
	if active.ActiveID != scriptID {
		t.Errorf("active = %q, want %q", active.ActiveID, scriptID)
	}
}

func TestPreview(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/preview", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if csp := rec.Header().Get("Content-Security-Policy"); csp != "sandbox allow-scripts" {
		t.Errorf("CSP = %q", csp)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<h1>Recipe Box</h1>") {
		t.Error("preview missing document body")
	}
}

func TestProblems(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)

	rec := env.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/problems", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var report struct {
		Title    string `json:"title"`
		Problems []any  `json:"problems"`
	}
	decodeBody(t, rec, &report)
	if report.Title != "Recipe Box" {
		t.Errorf("inspected title = %q", report.Title)
	}
}

func TestMessages(t *testing.T) {
	env := newTestEnv(t)
	proj := env.seedProject(t, testDoc)
	if _, err := env.store.AppendMessage(t.Context(), proj.ID, project.RoleUser, "make it blue"); err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/projects/"+proj.ID+"/messages", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Messages []project.Message `json:"messages"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Messages) != 1 || resp.Messages[0].Text != "make it blue" {
		t.Errorf("messages = %+v", resp.Messages)
	}
}

func TestEventsUnknownProject(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/projects/b3bb9d0a-66f9-4ba2-9df1-6ba71cdc0002/events", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
