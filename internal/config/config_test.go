package config_test

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"MediChat/internal/config"
)

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.BaseURL != config.DefaultBaseURL {
		t.Fatalf("unexpected base URL: %s", cfg.BaseURL)
	}
	if cfg.ChatPath != "/api/chat" {
		t.Fatalf("unexpected chat path: %s", cfg.ChatPath)
	}
	if cfg.Store != config.StoreFile {
		t.Fatalf("unexpected store: %s", cfg.Store)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected TTL: %v", cfg.SessionTTL)
	}
	if cfg.Timeout != 0 {
		t.Fatalf("expected no timeout by default, got %v", cfg.Timeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("MEDICHAT_BASE_URL", "http://backend:9000")
	t.Setenv("MEDICHAT_STORE", "sqlite")
	t.Setenv("MEDICHAT_SESSION_TTL", "2h")
	t.Setenv("MEDICHAT_TIMEOUT", "30s")
	t.Setenv("MEDICHAT_REMOTE_CLEAR", "true")

	cfg, err := config.Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.BaseURL != "http://backend:9000" {
		t.Fatalf("unexpected base URL: %s", cfg.BaseURL)
	}
	if cfg.Store != config.StoreSQLite {
		t.Fatalf("unexpected store: %s", cfg.Store)
	}
	if cfg.SessionTTL != 2*time.Hour || cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected durations: ttl=%v timeout=%v", cfg.SessionTTL, cfg.Timeout)
	}
	if !cfg.RemoteClear {
		t.Fatal("expected remote clear to be enabled")
	}
}

func TestLoadFromDotEnvFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("MEDICHAT_CHAT_PATH=/v2/chat\n"), 0600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("MEDICHAT_CHAT_PATH", "")
	os.Unsetenv("MEDICHAT_CHAT_PATH")

	cfg, err := config.Load(envFile)
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.ChatPath != "/v2/chat" {
		t.Fatalf("expected chat path from .env, got %s", cfg.ChatPath)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MEDICHAT_SESSION_TTL", "a day")
	if _, err := config.Load(missingEnvFile(t)); err == nil {
		t.Fatal("expected error for unparsable TTL")
	}
}

func TestFlagsOverrideLoadedValues(t *testing.T) {
	cfg := config.Default()
	fs := flag.NewFlagSet("medichat", flag.ContinueOnError)
	cfg.RegisterFlags(fs)

	if err := fs.Parse([]string{"-store", "memory", "-yes", "-session-ttl", "1h"}); err != nil {
		t.Fatalf("Parse err: %v", err)
	}

	if cfg.Store != config.StoreMemory || !cfg.AssumeYes || cfg.SessionTTL != time.Hour {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.BaseURL != config.DefaultBaseURL {
		t.Fatalf("unset flag should keep default, got %s", cfg.BaseURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"empty base url", func(c *config.Config) { c.BaseURL = " " }},
		{"relative chat path", func(c *config.Config) { c.ChatPath = "api/chat" }},
		{"unknown store", func(c *config.Config) { c.Store = "redis" }},
		{"missing store path", func(c *config.Config) { c.StorePath = "" }},
		{"zero ttl", func(c *config.Config) { c.SessionTTL = 0 }},
		{"negative timeout", func(c *config.Config) { c.Timeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	memory := config.Default()
	memory.Store = config.StoreMemory
	memory.StorePath = ""
	if err := memory.Validate(); err != nil {
		t.Fatalf("memory store needs no path: %v", err)
	}
}
