package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

const (
	DefaultBasePath   = "/api/v1"
	DefaultUsers      = 10
	DefaultTimeout    = 30 * time.Second
	DefaultIdentities = "stress_test_users.json"
	DefaultSetupDecks = 2
	DefaultLogLevel   = "info"
)

type Config struct {
	TargetURL   string            `mapstructure:"target"`
	BasePath    string            `mapstructure:"base_path"`
	Headers     map[string]string `mapstructure:"headers"`
	Users       int               `mapstructure:"users"`
	SpawnRate   float64           `mapstructure:"spawn_rate"`
	Duration    time.Duration     `mapstructure:"duration"`
	Timeout     time.Duration     `mapstructure:"timeout"`
	Identities  string            `mapstructure:"identities"`
	Seed        int64             `mapstructure:"seed"`
	Classes     map[string]int    `mapstructure:"classes"`
	SetupDecks  int               `mapstructure:"setup_decks"`
	JSONOutput  bool              `mapstructure:"json_output"`
	LogErrors   bool              `mapstructure:"log_errors"`
	LogLevel    string            `mapstructure:"log_level"`
	MetricsAddr string            `mapstructure:"metrics_addr"`
	ConfigFile  string            `mapstructure:"-"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

// TracingConfig configures OpenTelemetry export of request spans.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   *bool   `mapstructure:"propagate"`
}

// Enabled reports whether an exporter endpoint is configured, either
// explicitly or through OTEL_EXPORTER_OTLP_ENDPOINT.
func (t TracingConfig) Enabled() bool {
	if strings.TrimSpace(t.Endpoint) != "" {
		return true
	}
	return strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")) != ""
}

// ShouldPropagate reports whether W3C trace headers are injected. Defaults to true.
func (t TracingConfig) ShouldPropagate() bool {
	if t.Propagate == nil {
		return true
	}
	return *t.Propagate
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	if strings.TrimSpace(c.TargetURL) == "" {
		issues = append(issues, "target is required")
	} else if u, err := url.Parse(c.TargetURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		issues = append(issues, fmt.Sprintf("target %q must be an absolute http(s) URL", c.TargetURL))
	}
	if c.BasePath != "" && !strings.HasPrefix(c.BasePath, "/") {
		issues = append(issues, "base path must start with /")
	}
	if c.Users <= 0 {
		issues = append(issues, "users must be greater than zero")
	}
	if c.SpawnRate < 0 {
		issues = append(issues, "spawn rate must be non-negative")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be non-negative")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be greater than zero")
	}
	if c.SetupDecks < 0 {
		issues = append(issues, "setup decks must be non-negative")
	}

	active := len(c.Classes) == 0
	for name, weight := range c.Classes {
		if strings.TrimSpace(name) == "" {
			issues = append(issues, "class name cannot be empty")
		}
		if weight < 0 {
			issues = append(issues, fmt.Sprintf("class %s: weight must be non-negative", name))
		}
		if weight > 0 {
			active = true
		}
	}
	if !active {
		issues = append(issues, "at least one class must have a positive weight")
	}

	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		issues = append(issues, fmt.Sprintf("log level %q is not supported", c.LogLevel))
	}

	issues = append(issues, validateTracingConfig(c.Tracing)...)

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}

	return nil
}

func validateTracingConfig(t TracingConfig) []string {
	var issues []string
	switch strings.ToLower(strings.TrimSpace(t.Protocol)) {
	case "", "grpc", "http":
	default:
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported (use grpc or http)", t.Protocol))
	}
	if t.SampleRate < 0 || t.SampleRate > 1 {
		issues = append(issues, "tracing sample rate must be between 0 and 1")
	}
	return issues
}
