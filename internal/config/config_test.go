package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	t.Setenv("PORT", "")
	t.Setenv("CORS_ORIGIN", "")
	t.Setenv("WORKSPACE_BASE_PATH", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":2000" {
		t.Errorf("Addr = %q, want :2000", cfg.Server.Addr)
	}
	if cfg.LLM.Provider != "anthropic" || cfg.LLM.Model != "claude-sonnet-4-5-20250929" {
		t.Errorf("LLM defaults = %+v", cfg.LLM)
	}
	if cfg.LLM.MaxTokens != 8000 {
		t.Errorf("MaxTokens = %d, want 8000", cfg.LLM.MaxTokens)
	}
	if cfg.Workspace.BasePath != "/tmp/sessions" || cfg.Workspace.MaxAgeHours != 24 {
		t.Errorf("Workspace defaults = %+v", cfg.Workspace)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
server:
  addr: ":9000"
  dev: true
llm:
  provider: dummy
workspace:
  base_path: /var/lib/dash
  watch: true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":9000" || !cfg.Server.Dev {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.LLM.Provider != "dummy" {
		t.Errorf("Provider = %q", cfg.LLM.Provider)
	}
	if cfg.Workspace.BasePath != "/var/lib/dash" || !cfg.Workspace.Watch {
		t.Errorf("Workspace = %+v", cfg.Workspace)
	}
	// Untouched sections keep their defaults.
	if cfg.Session.MaxIdleHours != 24 {
		t.Errorf("MaxIdleHours = %d, want 24", cfg.Session.MaxIdleHours)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "env-key")
	t.Setenv("PORT", "7777")
	t.Setenv("CORS_ORIGIN", "https://dash.example.com")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("llm:\n  api_key: file-key\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.LLM.APIKey)
	}
	if cfg.Server.Addr != ":7777" {
		t.Errorf("Addr = %q, want :7777", cfg.Server.Addr)
	}
	if cfg.Server.CORSOrigin != "https://dash.example.com" {
		t.Errorf("CORSOrigin = %q", cfg.Server.CORSOrigin)
	}
}

func TestValidateRequiresAPIKeyForAnthropic(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing api key")
	}

	cfg.LLM.Provider = "dummy"
	if err := cfg.Validate(); err != nil {
		t.Errorf("dummy provider should not need a key: %v", err)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "openai"
	cfg.LLM.APIKey = "k"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}
}
