package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/mockbird/mockbird/internal/log"
)

// AnthropicClient generates through the Anthropic Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  anthropic.Model
	logger log.Logger
}

// NewAnthropic creates a client for the given model, for example
// "claude-sonnet-4-20250514". The key comes from configuration, not from
// the process environment, so it follows the masked config lifecycle.
func NewAnthropic(apiKey, model string, logger log.Logger) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic API key is required")
	}
	if model == "" {
		return nil, errors.New("model name is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
		logger: logger,
	}, nil
}

// Name returns the provider-qualified model name.
func (c *AnthropicClient) Name() string { return "anthropic/" + string(c.model) }

// Generate issues one Messages call, streaming text deltas to cb when set.
func (c *AnthropicClient) Generate(ctx context.Context, req Request, cb StreamCallback) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(float64(req.Temperature)),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	stream := c.client.Messages.NewStreaming(ctx, params)
	message := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := message.Accumulate(event); err != nil {
			return "", fmt.Errorf("accumulate stream event: %w", err)
		}

		if cb == nil {
			continue
		}
		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if err := cb(ctx, deltaVariant.Text); err != nil {
					return "", fmt.Errorf("stream callback: %w", err)
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return "", fmt.Errorf("generate with %s: %w", c.Name(), err)
	}

	var text strings.Builder
	for _, block := range message.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(variant.Text)
		}
	}
	return text.String(), nil
}
