package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultOpenAIModel    = "openai/gpt-4o"
	defaultAnthropicModel = "anthropic/claude-3.5-sonnet"

	// DefaultProvider handles generation when a request names none.
	DefaultProvider = "openai"

	// DefaultHistoryPairs is how many recent interaction pairs feed an
	// update call's conversational context.
	DefaultHistoryPairs = 3
)

var providerDefaultModels = map[string]string{
	"openai":    defaultOpenAIModel,
	"anthropic": defaultAnthropicModel,
}

// Config represents the complete specfoundry configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Providers  ProviderConfig   `yaml:"providers"`
	Generation GenerationConfig `yaml:"generation"`
}

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Bind            string        `yaml:"bind"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite store
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig configures the structured logger
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"`
}

// ProviderConfig configures the AI provider adapters
type ProviderConfig struct {
	Default   string                  `yaml:"default"`
	OpenAI    ProviderEndpointConfig  `yaml:"openai"`
	Anthropic ProviderEndpointConfig  `yaml:"anthropic"`
}

// ProviderEndpointConfig holds one provider's connection settings
type ProviderEndpointConfig struct {
	Enabled bool   `yaml:"enabled"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// GenerationConfig tunes outbound model calls
type GenerationConfig struct {
	Temperature  float64 `yaml:"temperature"`
	MaxTokens    int     `yaml:"max_tokens"`
	HistoryPairs int     `yaml:"history_pairs"`
}

// Default returns a configuration with sensible defaults applied.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind:            "127.0.0.1:8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path: "specfoundry.db",
		},
		Logging: LoggingConfig{
			Dir:   "logs",
			Level: "info",
		},
		Providers: ProviderConfig{
			Default: DefaultProvider,
			OpenAI: ProviderEndpointConfig{
				Model: defaultOpenAIModel,
			},
			Anthropic: ProviderEndpointConfig{
				Model: defaultAnthropicModel,
			},
		},
		Generation: GenerationConfig{
			Temperature:  0.4,
			MaxTokens:    4096,
			HistoryPairs: DefaultHistoryPairs,
		},
	}
}

// Load reads configuration from the given path (optional) and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SPECFOUNDRY_BIND"); v != "" {
		cfg.Server.Bind = v
	}
	if v := os.Getenv("SPECFOUNDRY_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SPECFOUNDRY_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := os.Getenv("SPECFOUNDRY_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SPECFOUNDRY_DEFAULT_PROVIDER"); v != "" {
		cfg.Providers.Default = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Providers.OpenAI.APIKey = v
		cfg.Providers.OpenAI.Enabled = true
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.Providers.OpenAI.BaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.Providers.Anthropic.APIKey = v
		cfg.Providers.Anthropic.Enabled = true
	}
	if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		cfg.Providers.Anthropic.BaseURL = v
	}

	if v := strings.TrimSpace(os.Getenv("SPECFOUNDRY_MAX_TOKENS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Generation.MaxTokens = n
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Providers.Default == "" {
		cfg.Providers.Default = DefaultProvider
	}
	if cfg.Providers.OpenAI.Model == "" {
		cfg.Providers.OpenAI.Model = providerDefaultModels["openai"]
	}
	if cfg.Providers.Anthropic.Model == "" {
		cfg.Providers.Anthropic.Model = providerDefaultModels["anthropic"]
	}
	if cfg.Generation.HistoryPairs <= 0 {
		cfg.Generation.HistoryPairs = DefaultHistoryPairs
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path cannot be empty")
	}
	if strings.TrimSpace(c.Server.Bind) == "" {
		return fmt.Errorf("server.bind cannot be empty")
	}
	switch c.Providers.Default {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown default provider %q", c.Providers.Default)
	}
	if c.Generation.MaxTokens < 0 {
		return fmt.Errorf("generation.max_tokens cannot be negative")
	}
	return nil
}

// DefaultModelFor returns the configured model for a provider id.
func (c *Config) DefaultModelFor(providerID string) string {
	switch providerID {
	case "openai":
		return c.Providers.OpenAI.Model
	case "anthropic":
		return c.Providers.Anthropic.Model
	}
	return providerDefaultModels[providerID]
}
