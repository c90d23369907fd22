package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		var cfg Config
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := Config{Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})

	t.Run("pipeline defaults", func(t *testing.T) {
		var cfg Config
		cfg.ApplyDefaults()
		if cfg.FFmpeg.Binary != "ffmpeg" {
			t.Errorf("expected ffmpeg binary default, got %q", cfg.FFmpeg.Binary)
		}
		if cfg.Enrichment.HistoryLimit != 3 {
			t.Errorf("expected history limit 3, got %d", cfg.Enrichment.HistoryLimit)
		}
		if cfg.Enrichment.QueueSize != 128 {
			t.Errorf("expected queue size 128, got %d", cfg.Enrichment.QueueSize)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("expected port 8080, got %d", cfg.Server.Port)
		}
		if cfg.Metrics.Interval != 30*time.Second {
			t.Errorf("expected 30s metric interval, got %s", cfg.Metrics.Interval)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		cfg.ApplyDefaults()
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"invalid environment", func(c *Config) { c.Environment = "qa" }, "config.environment must be one of"},
		{"invalid port", func(c *Config) { c.Server.Port = -1 }, "config.server.port"},
		{"auth enabled without secret", func(c *Config) { c.Auth.Enabled = true }, "config.auth.jwt_secret"},
		{"tracing enabled without endpoint", func(c *Config) { c.Tracing.Enabled = true }, "config.tracing.endpoint"},
		{"metrics enabled without endpoint", func(c *Config) { c.Metrics.Enabled = true }, "config.metrics.endpoint"},
		{"negative history limit", func(c *Config) { c.Enrichment.HistoryLimit = -1 }, "config.enrichment.history_limit"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.errMsg) {
				t.Errorf("expected error containing %q, got %q", tc.errMsg, err.Error())
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")
	content := `
name: voicediag
environment: production
server:
  port: 9090
llm:
  model: gpt-4o
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var cfg Config
	if err := Load("voicediag", &cfg, WithConfigFile(configPath), WithEnvFile(filepath.Join(dir, "missing.env"))); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Environment != "production" {
		t.Errorf("expected production, got %q", cfg.Environment)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected model gpt-4o, got %q", cfg.LLM.Model)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "7070")

	var cfg Config
	if err := Load("voicediag", &cfg, WithConfigFile("does-not-exist.yml"), WithEnvFile("does-not-exist.env")); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("expected env override port 7070, got %d", cfg.Server.Port)
	}
}

type fakeFS struct {
	files map[string]bool
}

func (f *fakeFS) Exists(path string) bool  { return f.files[path] }
func (f *fakeFS) LoadEnv(path string) error { return nil }

func TestFileResolution(t *testing.T) {
	fs := &fakeFS{files: map[string]bool{
		"./cmd/voicediag/config.yml": true,
	}}
	got := findFile(fs, configSearchPaths("voicediag"))
	if got != "./cmd/voicediag/config.yml" {
		t.Errorf("expected cmd config path, got %q", got)
	}

	empty := &fakeFS{files: map[string]bool{}}
	if got := findFile(empty, configSearchPaths("voicediag")); got != "" {
		t.Errorf("expected empty resolution, got %q", got)
	}
}
