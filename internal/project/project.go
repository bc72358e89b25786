// Package project persists project records and their chat history.
//
// A project keeps only the last saved bundled document; the editable file
// set is reconstructed from it when a session opens and flattened back on
// save.
package project

import (
	"errors"
	"time"
)

// Message roles, enforced by the schema.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Sentinel errors for project storage.
var (
	// ErrNotFound indicates no project exists with the given ID.
	ErrNotFound = errors.New("project not found")

	// ErrEmptyTitle indicates a blank project title.
	ErrEmptyTitle = errors.New("empty project title")

	// ErrInvalidRole indicates a history role outside user/model.
	ErrInvalidRole = errors.New("invalid message role")
)

// Project is a saved prototype: its title and the last saved document.
type Project struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one chat history entry. History is append-only; nothing in
// the system rewrites past entries.
type Message struct {
	ID        int64     `json:"id"`
	ProjectID string    `json:"project_id"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}
