package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/memora/memora-load/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	loader := config.NewLoader()

	cfg, err := loader.Load([]string{"--target", "http://localhost:8000"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.BasePath != "/api/v1" {
		t.Errorf("BasePath = %q, want /api/v1", cfg.BasePath)
	}
	if cfg.Users != 10 {
		t.Errorf("Users = %d, want 10", cfg.Users)
	}
	if cfg.SpawnRate != 0 {
		t.Errorf("SpawnRate = %v, want 0", cfg.SpawnRate)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %s, want 30s", cfg.Timeout)
	}
	if cfg.Identities != "stress_test_users.json" {
		t.Errorf("Identities = %q", cfg.Identities)
	}
	if cfg.SetupDecks != 2 {
		t.Errorf("SetupDecks = %d, want 2", cfg.SetupDecks)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Tracing.SampleRate != 1.0 {
		t.Errorf("Tracing.SampleRate = %v, want 1", cfg.Tracing.SampleRate)
	}
	if len(cfg.Classes) != 0 {
		t.Errorf("Classes = %v, want empty", cfg.Classes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadWithoutArgsRequestsHelp(t *testing.T) {
	_, err := config.NewLoader().Load(nil)
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load() error = %v, want ErrHelpRequested", err)
	}
	_, err = config.NewLoader().Load([]string{"--help"})
	if !errors.Is(err, config.ErrHelpRequested) {
		t.Fatalf("Load(--help) error = %v, want ErrHelpRequested", err)
	}
}

func TestLoadConfigFileJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := os.WriteFile(path, []byte(`{
		"target": "https://memora.example.com",
		"headers": {"X-Env": "staging"},
		"users": 40,
		"spawnRate": 4,
		"duration": "2m",
		"timeout": "45s",
		"identities": "users.json",
		"classes": {"default": 2, "read_only": 6},
		"jsonOutput": true
	}`), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--users", "80", "--header", "X-Run=smoke"})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.TargetURL != "https://memora.example.com" {
		t.Errorf("TargetURL = %q", cfg.TargetURL)
	}
	if cfg.Users != 80 {
		t.Errorf("Users = %d, want 80 (flag wins)", cfg.Users)
	}
	if cfg.SpawnRate != 4 {
		t.Errorf("SpawnRate = %v, want 4", cfg.SpawnRate)
	}
	if cfg.Headers["X-Env"] != "staging" || cfg.Headers["X-Run"] != "smoke" {
		t.Errorf("Headers = %v", cfg.Headers)
	}
	if cfg.Duration != 2*time.Minute {
		t.Errorf("Duration = %s, want 2m", cfg.Duration)
	}
	if cfg.Timeout != 45*time.Second {
		t.Errorf("Timeout = %s, want 45s", cfg.Timeout)
	}
	if cfg.Identities != "users.json" {
		t.Errorf("Identities = %q", cfg.Identities)
	}
	if cfg.Classes["read_only"] != 6 || cfg.Classes["default"] != 2 {
		t.Errorf("Classes = %v", cfg.Classes)
	}
	if !cfg.JSONOutput {
		t.Errorf("JSONOutput = false, want true")
	}
	if cfg.ConfigFile != path {
		t.Errorf("ConfigFile = %q, want %q", cfg.ConfigFile, path)
	}
}

func TestLoadConfigFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := strings.Join([]string{
		"target: http://localhost:8000",
		"base_path: /api/v1",
		"users: 4",
		"setup_decks: 5",
		"log_level: debug",
		"metrics_addr: \":9090\"",
		"classes:",
		"  write_heavy: 1",
		"tracing:",
		"  endpoint: collector:4318",
		"  protocol: http",
		"  insecure: true",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.NewLoader().Load([]string{"--config", path})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.SetupDecks != 5 {
		t.Errorf("SetupDecks = %d, want 5", cfg.SetupDecks)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
	if cfg.MetricsAddr != ":9090" {
		t.Errorf("MetricsAddr = %q, want :9090", cfg.MetricsAddr)
	}
	if cfg.Classes["write_heavy"] != 1 {
		t.Errorf("Classes = %v", cfg.Classes)
	}
	if cfg.Tracing.Protocol != "http" || !cfg.Tracing.Insecure || !cfg.Tracing.Enabled() {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
}

func TestConfigValidationErrors(t *testing.T) {
	cfg := config.Config{
		TargetURL:  "ftp://example.com",
		BasePath:   "api",
		Users:      0,
		SpawnRate:  -1,
		Timeout:    0,
		SetupDecks: -1,
		Classes:    map[string]int{"default": 0, "read_only": -2},
		LogLevel:   "loud",
		Tracing:    config.TracingConfig{Protocol: "udp", SampleRate: 2},
	}

	err := cfg.Validate()
	var verr config.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Validate() error = %v, want ValidationError", err)
	}

	want := []string{
		"must be an absolute http(s) URL",
		"base path must start with /",
		"users must be greater than zero",
		"spawn rate must be non-negative",
		"timeout must be greater than zero",
		"setup decks must be non-negative",
		"class read_only: weight must be non-negative",
		"at least one class must have a positive weight",
		"log level \"loud\" is not supported",
		"tracing protocol \"udp\" is not supported",
		"tracing sample rate must be between 0 and 1",
	}
	joined := strings.Join(verr.Issues(), "\n")
	for _, fragment := range want {
		if !strings.Contains(joined, fragment) {
			t.Errorf("missing issue %q in:\n%s", fragment, joined)
		}
	}
}

func TestValidateRequiresTarget(t *testing.T) {
	cfg := config.Config{Users: 1, Timeout: time.Second, LogLevel: "info"}
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "target is required") {
		t.Fatalf("Validate() error = %v, want target is required", err)
	}
}
