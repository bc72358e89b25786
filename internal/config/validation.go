package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidProvider indicates the generation provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is unusable.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrMissingAPIKey indicates the selected provider requires a key that
	// is not set.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidOllamaHost indicates the Ollama host is not a valid URL.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")

	// ErrInvalidAddr indicates the HTTP listen address is empty.
	ErrInvalidAddr = errors.New("invalid listen address")

	// ErrInvalidDebounce indicates the preview debounce is out of range.
	ErrInvalidDebounce = errors.New("invalid preview debounce")

	// ErrInvalidMinResponse indicates the response plausibility threshold
	// is out of range.
	ErrInvalidMinResponse = errors.New("invalid min response bytes")

	// ErrInvalidTimeout indicates a generation timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout")

	// ErrInvalidRateLimit indicates the request rate limit is out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidDataDir indicates the data directory is empty.
	ErrInvalidDataDir = errors.New("invalid data directory")
)

// Bounds for the preview debounce window. A window shorter than 50ms
// re-renders on nearly every keystroke; one beyond 10s feels broken.
const (
	MinPreviewDebounce = 50 * time.Millisecond
	MaxPreviewDebounce = 10 * time.Second
)

// Validate checks the configuration and fails fast with a sentinel error.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	switch c.Provider {
	case ProviderGemini, ProviderGoogleAI, ProviderOllama, ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("%w: %q (supported: gemini, googleai, ollama, openai, anthropic)",
			ErrInvalidProvider, c.Provider)
	}

	if c.ModelName == "" || strings.ContainsAny(c.ModelName, " \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidModelName, c.ModelName)
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %v (range 0-2)", ErrInvalidTemperature, c.Temperature)
	}
	if c.MaxTokens < 1 || c.MaxTokens > 1_000_000 {
		return fmt.Errorf("%w: %d", ErrInvalidMaxTokens, c.MaxTokens)
	}

	if c.Provider == ProviderAnthropic && c.AnthropicAPIKey == "" {
		return fmt.Errorf("%w: set ANTHROPIC_API_KEY for the anthropic provider", ErrMissingAPIKey)
	}
	if c.Provider == ProviderOllama {
		u, err := url.Parse(c.OllamaHost)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: %q", ErrInvalidOllamaHost, c.OllamaHost)
		}
	}

	if c.EditTimeout <= 0 || c.GenerateTimeout <= 0 {
		return fmt.Errorf("%w: edit %v, generate %v", ErrInvalidTimeout, c.EditTimeout, c.GenerateTimeout)
	}
	if c.MinResponseBytes < 1 || c.MinResponseBytes > 100_000 {
		return fmt.Errorf("%w: %d", ErrInvalidMinResponse, c.MinResponseBytes)
	}
	if c.RequestsPerMin < 1 || c.RequestsPerMin > 10_000 {
		return fmt.Errorf("%w: %d requests per minute", ErrInvalidRateLimit, c.RequestsPerMin)
	}

	if strings.TrimSpace(c.Addr) == "" {
		return ErrInvalidAddr
	}
	if c.PreviewDebounce < MinPreviewDebounce || c.PreviewDebounce > MaxPreviewDebounce {
		return fmt.Errorf("%w: %v (range %v-%v)",
			ErrInvalidDebounce, c.PreviewDebounce, MinPreviewDebounce, MaxPreviewDebounce)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return ErrInvalidDataDir
	}

	return nil
}
