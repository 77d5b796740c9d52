// Package config loads the backend configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Session   SessionConfig   `yaml:"session"`
	Store     StoreConfig     `yaml:"store"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`
	CORSOrigin string `yaml:"cors_origin"`
	Dev        bool   `yaml:"dev"`
}

type LLMConfig struct {
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type WorkspaceConfig struct {
	BasePath    string `yaml:"base_path"`
	MaxAgeHours int    `yaml:"max_age_hours"`
	Watch       bool   `yaml:"watch"`
}

type SessionConfig struct {
	MaxIdleHours int `yaml:"max_idle_hours"`
}

// StoreConfig configures the optional transcript database. Empty path
// disables it.
type StoreConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:       ":2000",
			CORSOrigin: "http://localhost:2500",
		},
		LLM: LLMConfig{
			Provider:  "anthropic",
			Model:     "claude-sonnet-4-5-20250929",
			MaxTokens: 8000,
		},
		Workspace: WorkspaceConfig{
			BasePath:    "/tmp/sessions",
			MaxAgeHours: 24,
		},
		Session: SessionConfig{
			MaxIdleHours: 24,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from a file, falling back to defaults when the
// file is absent, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env is a complete configuration.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	if origin := os.Getenv("CORS_ORIGIN"); origin != "" {
		c.Server.CORSOrigin = origin
	}
	if base := os.Getenv("WORKSPACE_BASE_PATH"); base != "" {
		c.Workspace.BasePath = base
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.LLM.Provider == "" {
		return fmt.Errorf("llm.provider is required")
	}
	if c.LLM.Provider != "anthropic" && c.LLM.Provider != "dummy" {
		return fmt.Errorf("llm.provider must be 'anthropic' or 'dummy'")
	}
	if c.LLM.Provider == "anthropic" && c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set ANTHROPIC_API_KEY)")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.Workspace.BasePath == "" {
		return fmt.Errorf("workspace.base_path is required")
	}
	if c.Workspace.MaxAgeHours <= 0 {
		return fmt.Errorf("workspace.max_age_hours must be positive")
	}
	if c.Session.MaxIdleHours <= 0 {
		return fmt.Errorf("session.max_idle_hours must be positive")
	}
	return nil
}
