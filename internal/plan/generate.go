package plan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mockbird/mockbird/internal/backend"
	"github.com/mockbird/mockbird/internal/log"
)

// ErrEmptyIdea indicates no idea text was provided.
var ErrEmptyIdea = errors.New("empty idea")

const planSystemPrompt = `You are a senior product designer planning a small single-page web application.
You respond with strict JSON only. No code fences, no commentary, no trailing text.`

const planPromptTemplate = `Design a build plan for this idea:

%s

Return a JSON object with exactly these fields:
  "name": short product name
  "summary": two or three sentences describing the app
  "features": array of {"title", "detail"} objects, 3 to 6 entries
  "style": {"palette": array of CSS color strings, "tone": one-line visual direction}`

// Generator produces plans through a generation backend.
type Generator struct {
	client      backend.Client
	logger      log.Logger
	temperature float32
	maxTokens   int
}

// Config wires a Generator.
type Config struct {
	Client backend.Client
	Logger log.Logger

	Temperature float32
	MaxTokens   int
}

// New creates a plan Generator.
func New(cfg Config) (*Generator, error) {
	if cfg.Client == nil {
		return nil, errors.New("backend client is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	return &Generator{
		client:      cfg.Client,
		logger:      cfg.Logger,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}, nil
}

// Generate asks the backend for a plan. Reference material gathered from
// imported pages is appended to the prompt when present.
func (g *Generator) Generate(ctx context.Context, idea, reference string) (*Plan, error) {
	if strings.TrimSpace(idea) == "" {
		return nil, ErrEmptyIdea
	}

	prompt := fmt.Sprintf(planPromptTemplate, idea)
	if reference != "" {
		prompt += "\n\nReference material collected for this idea:\n\n" + reference
	}

	raw, err := g.client.Generate(ctx, backend.Request{
		System:      planSystemPrompt,
		Prompt:      prompt,
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("generate plan: %w", err)
	}

	p, err := Parse(raw)
	if err != nil {
		g.logger.Debug("plan response rejected", "error", err)
		return nil, err
	}
	g.logger.Info("plan generated", "name", p.Name, "features", len(p.Features))
	return p, nil
}
