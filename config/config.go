// Package config loads the runtime configuration: backend selection, model
// identifiers and sampling defaults, retry and repair budgets, validator
// strictness and logging. Values come from an optional YAML file with
// environment variable overrides for deployment-sensitive settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Backend struct {
		Provider string `yaml:"provider"` // openai, anthropic or ollama
		Model    string `yaml:"model"`
		BaseURL  string `yaml:"base_url"` // ollama only
		APIKey   string `yaml:"api_key"`
	} `yaml:"backend"`
	Sampling struct {
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int64   `yaml:"max_tokens"`
	} `yaml:"sampling"`
	Retry struct {
		MaxAttempts int           `yaml:"max_attempts"`
		BaseDelay   time.Duration `yaml:"base_delay"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"retry"`
	Repair struct {
		MaxAttempts int  `yaml:"max_attempts"`
		Strict      bool `yaml:"strict"`
	} `yaml:"repair"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"` // json, text or console
	} `yaml:"log"`
}

// Default returns the baseline configuration: a local Ollama backend with
// conservative budgets.
func Default() Config {
	var cfg Config
	cfg.Backend.Provider = "ollama"
	cfg.Backend.Model = "llama3.2"
	cfg.Backend.BaseURL = "http://localhost:11434"
	cfg.Sampling.Temperature = 0.7
	cfg.Sampling.MaxTokens = 4096
	cfg.Retry.MaxAttempts = 3
	cfg.Retry.BaseDelay = time.Second
	cfg.Retry.Timeout = 30 * time.Second
	cfg.Repair.MaxAttempts = 3
	cfg.Log.Level = "info"
	cfg.Log.Format = "console"
	return cfg
}

// Load reads cfgPath (when non-empty and present), applies environment
// overrides and validates the result. A missing file with an empty path is
// not an error: defaults apply.
func Load(cfgPath string) (Config, error) {
	cfg := Default()

	if cfgPath != "" {
		data, err := os.ReadFile(cfgPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides deployment-sensitive settings from the environment.
func applyEnv(cfg *Config) {
	if v := os.Getenv("STRUCTGEN_PROVIDER"); v != "" {
		cfg.Backend.Provider = v
	}
	if v := os.Getenv("STRUCTGEN_MODEL"); v != "" {
		cfg.Backend.Model = v
	}
	if v := os.Getenv("STRUCTGEN_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("STRUCTGEN_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
}

func (c Config) validate() error {
	switch c.Backend.Provider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("config: unknown backend provider %q", c.Backend.Provider)
	}
	if c.Backend.Model == "" {
		return errors.New("config: backend model must be set")
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.New("config: retry.max_attempts must be at least 1")
	}
	if c.Repair.MaxAttempts < 1 {
		return errors.New("config: repair.max_attempts must be at least 1")
	}
	if c.Retry.BaseDelay < 0 || c.Retry.Timeout < 0 {
		return errors.New("config: retry delays must not be negative")
	}
	return nil
}
