package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(cwd) })
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()

	homeDir := filepath.Join(tempDir, "home")
	configDir := filepath.Join(homeDir, ".breakerbot")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	t.Setenv("HOME", homeDir)

	tomlConfig := []byte(`chunk_size = 48
scaler_path = "/models/scaler.json"
log_format = "json"

[aggregation]
text_policy = "naive"
parallelism = 4

[predictor]
addr = "model-home:7000"
timeout = "10s"
`)
	if err := os.WriteFile(filepath.Join(configDir, "config.toml"), tomlConfig, 0o644); err != nil {
		t.Fatalf("write toml config: %v", err)
	}

	// Provide a local YAML config overriding the TOML file.
	workDir := filepath.Join(tempDir, "work")
	if err := os.Mkdir(workDir, 0o755); err != nil {
		t.Fatalf("mkdir work: %v", err)
	}
	yamlConfig := []byte(`chunk_size: 32
aggregation:
  tolerate_malformed: true
predictor:
  addr: model-local:7001
store:
  path: /var/lib/breakerbot/store.db
`)
	if err := os.WriteFile(filepath.Join(workDir, "breakerbot.yml"), yamlConfig, 0o644); err != nil {
		t.Fatalf("write yaml config: %v", err)
	}

	// Ensure env overrides beat file configuration.
	t.Setenv("BREAKER_PREDICTOR", "model-env:7002")
	t.Setenv("BREAKER_LOG_LEVEL", "DEBUG")
	chdir(t, workDir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.ChunkSize != 32 {
		t.Fatalf("expected YAML chunk size, got %d", cfg.ChunkSize)
	}
	if cfg.ScalerPath != "/models/scaler.json" {
		t.Fatalf("expected TOML scaler path, got %s", cfg.ScalerPath)
	}
	if cfg.Aggregation.TextPolicy != "naive" || cfg.Aggregation.Parallelism != 4 {
		t.Fatalf("expected TOML aggregation settings, got %+v", cfg.Aggregation)
	}
	if !cfg.Aggregation.TolerateMalformed {
		t.Fatalf("expected tolerate_malformed from YAML")
	}
	if cfg.Predictor.Addr != "model-env:7002" {
		t.Fatalf("expected env override for predictor addr, got %s", cfg.Predictor.Addr)
	}
	if cfg.Predictor.Timeout != 10*time.Second {
		t.Fatalf("expected TOML timeout, got %s", cfg.Predictor.Timeout)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected log settings: %s/%s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Store.Path != "/var/lib/breakerbot/store.db" {
		t.Fatalf("expected YAML store path, got %s", cfg.Store.Path)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	defaults := Default()
	if cfg != defaults {
		t.Fatalf("expected defaults, got %#v", cfg)
	}
	if err := defaults.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	data := []byte("charset: \"ABC \\n\"\nchunk_size: 2\nkeygen:\n  max_attempts: 5\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Charset != "ABC \n" {
		t.Fatalf("charset must keep spaces and newlines, got %q", cfg.Charset)
	}
	if cfg.ChunkSize != 2 || cfg.Keygen.MaxAttempts != 5 {
		t.Fatalf("unexpected values: %+v", cfg)
	}

	if _, err := LoadFile(filepath.Join(dir, "config.ini")); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.toml")); err == nil {
		t.Fatalf("expected read error")
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"bad.toml": "chunk_sise = 3\n",
		"bad.yml":  "chunk_sise: 3\n",
	}
	for name, content := range tests {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := LoadFile(path); err == nil || !strings.Contains(err.Error(), "chunk_sise") {
			t.Fatalf("%s: expected unknown key error, got %v", name, err)
		}
	}
}

func TestEnvOverridesAreParsed(t *testing.T) {
	t.Setenv("HOME", filepath.Join(t.TempDir(), "home"))
	chdir(t, t.TempDir())

	t.Setenv("BREAKER_CHUNK_SIZE", "twelve")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-numeric chunk size")
	}

	t.Setenv("BREAKER_CHUNK_SIZE", "12")
	t.Setenv("BREAKER_LENIENT", "true")
	t.Setenv("BREAKER_PREDICTOR_TIMEOUT", "250ms")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ChunkSize != 12 || !cfg.Lenient || cfg.Predictor.Timeout != 250*time.Millisecond {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"charset", func(c *Config) { c.Charset = "AA" }, "charset"},
		{"chunk size", func(c *Config) { c.ChunkSize = 0 }, "chunk_size"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log_format"},
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "log_level"},
		{"text policy", func(c *Config) { c.Aggregation.TextPolicy = "vote" }, "text_policy"},
		{"parallelism", func(c *Config) { c.Aggregation.Parallelism = -1 }, "parallelism"},
		{"timeout", func(c *Config) { c.Predictor.Timeout = 0 }, "timeout"},
		{"max attempts", func(c *Config) { c.Keygen.MaxAttempts = 0 }, "max_attempts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %s error, got %v", tt.want, err)
			}
		})
	}
}
