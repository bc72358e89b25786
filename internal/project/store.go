package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mockbird/mockbird/internal/log"
)

// timeLayout is RFC 3339 with fixed-width nanoseconds, so lexicographic
// order on the stored text matches chronological order in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) { return time.Parse(time.RFC3339Nano, s) }

// Store persists projects in SQLite.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// NewStore creates a Store over an open database.
func NewStore(db *sql.DB, logger log.Logger) (*Store, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Store{db: db, logger: logger}, nil
}

// Create inserts a new project and returns it.
func (s *Store) Create(ctx context.Context, title, code string) (Project, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Project{}, ErrEmptyTitle
	}

	now := time.Now().UTC()
	p := Project{
		ID:        uuid.NewString(),
		Title:     title,
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (id, title, code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.Code, formatTime(p.CreatedAt), formatTime(p.UpdatedAt)); err != nil {
		return Project{}, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info("project created", "project_id", p.ID, "title", p.Title)
	return p, nil
}

// Get returns one project by ID.
func (s *Store) Get(ctx context.Context, id string) (Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, code, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	var (
		p                    Project
		createdAt, updatedAt string
	)
	err := row.Scan(&p.ID, &p.Title, &p.Code, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("get project: %w", err)
	}

	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return Project{}, fmt.Errorf("parse created_at: %w", err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Project{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return p, nil
}

// List returns all projects, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, code, created_at, updated_at
		FROM projects ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var (
			p                    Project
			createdAt, updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Code, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

// Rename changes a project's title.
func (s *Store) Rename(ctx context.Context, id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET title = ?, updated_at = ? WHERE id = ?
	`, title, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("rename project: %w", err)
	}
	return s.checkAffected(res, "rename project")
}

// SaveCode replaces a project's saved document.
func (s *Store) SaveCode(ctx context.Context, id, code string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET code = ?, updated_at = ? WHERE id = ?
	`, code, formatTime(time.Now().UTC()), id)
	if err != nil {
		return fmt.Errorf("save code: %w", err)
	}
	return s.checkAffected(res, "save code")
}

// Delete removes a project; its messages go with it.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := s.checkAffected(res, "delete project"); err != nil {
		return err
	}
	s.logger.Info("project deleted", "project_id", id)
	return nil
}

// AppendMessage records one history entry for a project.
func (s *Store) AppendMessage(ctx context.Context, projectID, role, text string) (Message, error) {
	if role != RoleUser && role != RoleModel {
		return Message{}, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (project_id, role, text, created_at)
		VALUES (?, ?, ?, ?)
	`, projectID, role, text, formatTime(now))
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}

	return Message{ID: id, ProjectID: projectID, Role: role, Text: text, CreatedAt: now}, nil
}

// Messages returns a project's history in append order.
func (s *Store) Messages(ctx context.Context, projectID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, role, text, created_at
		FROM messages WHERE project_id = ? ORDER BY id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			m         Message
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Role, &m.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// checkAffected converts a zero-row update into ErrNotFound.
func (s *Store) checkAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
