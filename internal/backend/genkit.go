package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"

	"github.com/mockbird/mockbird/internal/log"
)

// GenkitClient generates through a genkit instance. The instance carries
// the provider plugin (googlegenai, compat_oai, ollama); this client only
// issues calls against an already-qualified model name such as
// "googleai/gemini-2.5-flash".
type GenkitClient struct {
	g      *genkit.Genkit
	model  string
	logger log.Logger
}

// NewGenkit creates a client bound to a provider-qualified model name.
func NewGenkit(g *genkit.Genkit, model string, logger log.Logger) (*GenkitClient, error) {
	if g == nil {
		return nil, errors.New("genkit instance is required")
	}
	if model == "" {
		return nil, errors.New("model name is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	return &GenkitClient{g: g, model: model, logger: logger}, nil
}

// Name returns the provider-qualified model name.
func (c *GenkitClient) Name() string { return c.model }

// Generate issues one generation call, streaming fragments to cb when set.
func (c *GenkitClient) Generate(ctx context.Context, req Request, cb StreamCallback) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.model),
		ai.WithPrompt(req.Prompt),
		ai.WithConfig(c.generationConfig(req)),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			return cb(ctx, chunk.Text())
		}))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", c.model, err)
	}
	return resp.Text(), nil
}

// generationConfig builds the provider config. Gemini models take the
// google.golang.org/genai config; everything else understands genkit's
// common config.
func (c *GenkitClient) generationConfig(req Request) any {
	if strings.HasPrefix(c.model, "googleai/") {
		cfg := &genai.GenerateContentConfig{
			Temperature: genai.Ptr(req.Temperature),
		}
		if req.MaxTokens > 0 {
			cfg.MaxOutputTokens = int32(req.MaxTokens)
		}
		return cfg
	}
	return &ai.GenerationCommonConfig{
		Temperature:     float64(req.Temperature),
		MaxOutputTokens: req.MaxTokens,
	}
}
