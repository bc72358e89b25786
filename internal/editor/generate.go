package editor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mockbird/mockbird/internal/backend"
	"github.com/mockbird/mockbird/internal/log"
	"github.com/mockbird/mockbird/internal/plan"
)

const (
	titleTimeout       = 5 * time.Second
	titleInputMaxRunes = 500
	titleMaxTokens     = 64
)

// Generator produces whole documents and project titles through the same
// sanitize-and-validate plumbing the edit cycle uses.
type Generator struct {
	client backend.Client
	logger log.Logger

	temperature float32
	maxTokens   int
	minBytes    int
}

// GeneratorConfig wires a Generator.
type GeneratorConfig struct {
	Client backend.Client
	Logger log.Logger

	Temperature      float32
	MaxTokens        int
	MinResponseBytes int // 0 uses DefaultMinResponseBytes
}

// NewGenerator creates a Generator.
func NewGenerator(cfg GeneratorConfig) (*Generator, error) {
	if cfg.Client == nil {
		return nil, errors.New("backend client is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger is required")
	}
	minBytes := cfg.MinResponseBytes
	if minBytes <= 0 {
		minBytes = DefaultMinResponseBytes
	}
	return &Generator{
		client:      cfg.Client,
		logger:      cfg.Logger,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		minBytes:    minBytes,
	}, nil
}

// GenerateApp turns a plan into a project's first complete document.
// onChunk streams fragments as they arrive; pass nil when nobody watches.
func (g *Generator) GenerateApp(ctx context.Context, p *plan.Plan, onChunk backend.StreamCallback) (string, error) {
	if p == nil {
		return "", errors.New("plan is required")
	}

	raw, err := g.client.Generate(ctx, backend.Request{
		System:      appSystemPrompt,
		Prompt:      fmt.Sprintf(appPromptTemplate, p.Markdown()),
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	}, onChunk)
	if err != nil {
		return "", fmt.Errorf("generate app: %w", err)
	}

	cleaned := backend.StripFences(raw)
	if err := validateResponse(cleaned, g.minBytes); err != nil {
		return "", err
	}
	g.logger.Info("app generated", "name", p.Name, "document_bytes", len(cleaned))
	return cleaned, nil
}

// GenerateTitle produces a short project title from the idea. Best effort
// with a deterministic fallback; it never returns an empty string.
func (g *Generator) GenerateTitle(ctx context.Context, idea string) string {
	fallback := FallbackTitle(idea)

	ctx, cancel := context.WithTimeout(ctx, titleTimeout)
	defer cancel()

	inputRunes := []rune(idea)
	if len(inputRunes) > titleInputMaxRunes {
		idea = string(inputRunes[:titleInputMaxRunes]) + "..."
	}

	raw, err := g.client.Generate(ctx, backend.Request{
		Prompt:      fmt.Sprintf(titlePrompt, idea),
		Temperature: g.temperature,
		MaxTokens:   titleMaxTokens,
	}, nil)
	if err != nil {
		g.logger.Debug("title generation failed", "error", err)
		return fallback
	}

	title := strings.Trim(strings.TrimSpace(backend.StripFences(raw)), `"`)
	if title == "" {
		return fallback
	}
	if runes := []rune(title); len(runes) > TitleMaxLength {
		title = string(runes[:TitleMaxLength-3]) + "..."
	}
	return title
}

// FallbackTitle derives a title from the idea text alone: trimmed to the
// length cap at a word boundary. Used whenever AI title generation is
// unavailable or fails.
func FallbackTitle(idea string) string {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		return "Untitled project"
	}
	runes := []rune(idea)
	if len(runes) <= TitleMaxLength {
		return idea
	}
	truncated := string(runes[:TitleMaxLength])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > TitleMaxLength/2 {
		truncated = truncated[:lastSpace]
	}
	return strings.TrimSpace(truncated) + "..."
}
