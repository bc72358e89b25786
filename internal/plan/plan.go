// Package plan turns a one-line product idea into a structured build plan
// that seeds a project's first generated document.
package plan

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/yuin/goldmark"

	"github.com/mockbird/mockbird/internal/backend"
)

// Sentinel errors for plan parsing.
var (
	// ErrEmptyResponse indicates the model returned nothing usable.
	ErrEmptyResponse = errors.New("empty plan response")

	// ErrInvalidPlan indicates the response was not valid plan JSON.
	ErrInvalidPlan = errors.New("invalid plan")
)

// Feature is one concrete capability the generated app should include.
type Feature struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Style captures the visual direction for the generated app.
type Style struct {
	Palette []string `json:"palette"`
	Tone    string   `json:"tone"`
}

// Plan is the model-produced blueprint for a project. Every field is
// required; responses missing one fail schema validation.
type Plan struct {
	Name     string    `json:"name"`
	Summary  string    `json:"summary"`
	Features []Feature `json:"features"`
	Style    Style     `json:"style"`
}

// resolvedSchema caches the JSON Schema derived from the Plan struct.
// Deriving it is pure reflection, so a single resolution serves all calls.
var resolvedSchema = sync.OnceValues(func() (*jsonschema.Resolved, error) {
	schema, err := jsonschema.For[Plan](nil)
	if err != nil {
		return nil, err
	}
	return schema.Resolve(nil)
})

// Parse decodes a model reply into a validated Plan. Fence wrappers are
// stripped first; the remainder must be a JSON object matching the Plan
// schema.
func Parse(raw string) (*Plan, error) {
	cleaned := backend.StripFences(raw)
	if cleaned == "" {
		return nil, ErrEmptyResponse
	}

	resolved, err := resolvedSchema()
	if err != nil {
		return nil, fmt.Errorf("resolve plan schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal([]byte(cleaned), &instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	if err := resolved.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}

	var p Plan
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPlan, err)
	}
	return &p, nil
}

// Markdown renders the plan as a short Markdown document. This is the
// canonical human-readable form; HTML and terminal output both derive
// from it.
func (p *Plan) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n", p.Name, p.Summary)

	if len(p.Features) > 0 {
		b.WriteString("\n## Features\n\n")
		for _, f := range p.Features {
			fmt.Fprintf(&b, "- **%s**: %s\n", f.Title, f.Detail)
		}
	}

	if len(p.Style.Palette) > 0 || p.Style.Tone != "" {
		b.WriteString("\n## Style\n\n")
		if len(p.Style.Palette) > 0 {
			fmt.Fprintf(&b, "- Palette: %s\n", strings.Join(p.Style.Palette, ", "))
		}
		if p.Style.Tone != "" {
			fmt.Fprintf(&b, "- Tone: %s\n", p.Style.Tone)
		}
	}
	return b.String()
}

// HTML renders the plan through goldmark for the web UI.
func (p *Plan) HTML() ([]byte, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(p.Markdown()), &buf); err != nil {
		return nil, fmt.Errorf("render plan: %w", err)
	}
	return buf.Bytes(), nil
}
