// Package config provides application configuration with multi-source
// priority.
//
// Sources (highest to lowest):
//  1. Environment variables (runtime override, MOCKBIRD_* plus provider keys)
//  2. Config file (~/.mockbird/config.yaml, or ./config.yaml)
//  3. Defaults (usable out of the box with a Gemini key)
//
// A .env file in the working directory is loaded before viper runs, so
// provider keys can live there during development.
//
// Sensitive values are masked in String() and MarshalJSON(); when adding a
// new secret field, extend MarshalJSON.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Generation provider identifiers used in Config.Provider.
const (
	ProviderGemini    = "gemini"
	ProviderGoogleAI  = "googleai"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config stores the application configuration.
type Config struct {
	// Generation backend selection.
	Provider    string  `mapstructure:"provider" json:"provider"`
	ModelName   string  `mapstructure:"model_name" json:"model_name"`
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`

	// Ollama endpoint, used only when Provider is "ollama".
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Anthropic key, used only when Provider is "anthropic".
	// SENSITIVE: masked in MarshalJSON.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key" json:"anthropic_api_key"`

	// Generation behavior.
	EditTimeout      time.Duration `mapstructure:"edit_timeout" json:"edit_timeout"`
	GenerateTimeout  time.Duration `mapstructure:"generate_timeout" json:"generate_timeout"`
	MinResponseBytes int           `mapstructure:"min_response_bytes" json:"min_response_bytes"`
	RequestsPerMin   int           `mapstructure:"requests_per_minute" json:"requests_per_minute"`

	// HTTP studio server.
	Addr string `mapstructure:"addr" json:"addr"`

	// Preview pipeline.
	PreviewDebounce time.Duration `mapstructure:"preview_debounce" json:"preview_debounce"`

	// Local storage. DatabaseFile defaults to <data_dir>/mockbird.db.
	DataDir      string `mapstructure:"data_dir" json:"data_dir"`
	DatabaseFile string `mapstructure:"database_file" json:"database_file"`

	// Optional on-disk mirror of the open project for external editors.
	// Empty disables the workspace watcher.
	WorkspaceDir string `mapstructure:"workspace_dir" json:"workspace_dir"`

	// Logging.
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Tracing (see telemetry.go).
	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`
}

// Load reads configuration from all sources and validates it.
func Load() (*Config, error) {
	// Development convenience: pick up provider keys from ./.env. A missing
	// file is the normal case.
	_ = godotenv.Load()

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}
	configDir := filepath.Join(home, ".mockbird")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("no configuration file, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if cfg.DatabaseFile == "" {
		cfg.DatabaseFile = filepath.Join(cfg.DataDir, "mockbird.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(configDir string) {
	viper.SetDefault("provider", ProviderGemini)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 8192)

	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("edit_timeout", "2m")
	viper.SetDefault("generate_timeout", "3m")
	viper.SetDefault("min_response_bytes", 80)
	viper.SetDefault("requests_per_minute", 30)

	viper.SetDefault("addr", "localhost:8080")
	viper.SetDefault("preview_debounce", "800ms")

	viper.SetDefault("data_dir", configDir)

	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)

	viper.SetDefault("telemetry.endpoint", "localhost:4318")
	viper.SetDefault("telemetry.environment", "dev")
	viper.SetDefault("telemetry.service_name", "mockbird")
	viper.SetDefault("telemetry.enabled", false)
}

// bindEnvVariables wires the environment overrides explicitly.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug, not a
	// runtime condition.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("provider", "MOCKBIRD_PROVIDER")
	mustBind("model_name", "MOCKBIRD_MODEL_NAME")
	mustBind("ollama_host", "MOCKBIRD_OLLAMA_HOST")
	mustBind("addr", "MOCKBIRD_ADDR")
	mustBind("data_dir", "MOCKBIRD_DATA_DIR")
	mustBind("database_file", "MOCKBIRD_DATABASE_FILE")
	mustBind("workspace_dir", "MOCKBIRD_WORKSPACE_DIR")
	mustBind("log_level", "MOCKBIRD_LOG_LEVEL")
	mustBind("log_json", "MOCKBIRD_LOG_JSON")

	mustBind("anthropic_api_key", "ANTHROPIC_API_KEY")

	mustBind("telemetry.enabled", "MOCKBIRD_TELEMETRY_ENABLED")
	mustBind("telemetry.endpoint", "MOCKBIRD_OTLP_ENDPOINT")

	// NOTE: GEMINI_API_KEY and OPENAI_API_KEY are read directly by the
	// genkit plugins, not through viper. Validate() only checks presence
	// for the selected provider.
}

// maskedValue is the placeholder for masked secrets. Full-width blocks avoid
// accidental substring matches against real secret material.
const maskedValue = "████████"

// maskSecret masks a secret for logging. Short secrets are masked entirely;
// longer ones keep two characters on each end for debugging.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON masks sensitive fields. Currently: AnthropicAPIKey.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.AnthropicAPIKey = maskSecret(a.AnthropicAPIKey)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer so printed configs never leak secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified model reference for genkit.
// Examples: "googleai/gemini-2.5-flash", "ollama/llama3.3", "openai/gpt-4o".
// A ModelName that already contains "/" is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOllama:
		return ProviderOllama + "/" + c.ModelName
	case ProviderOpenAI:
		return ProviderOpenAI + "/" + c.ModelName
	default:
		return ProviderGoogleAI + "/" + c.ModelName
	}
}
