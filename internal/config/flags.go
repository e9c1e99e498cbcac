package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "memora-load",
		Short:         "Simulate concurrent users against the Memora flashcard API",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

func configureFlags(flags *pflag.FlagSet) {
	// Target
	flags.String("target", "", "Base URL of the Memora API host (e.g. http://localhost:8000)")
	flags.String("base-path", DefaultBasePath, "Path prefix prepended to every API route")
	flags.StringSlice("header", nil, "Additional request header in key=value form")
	flags.Duration("timeout", DefaultTimeout, "Per-request timeout")

	// Users
	flags.IntP("users", "u", DefaultUsers, "Number of virtual users to spawn")
	flags.Float64("spawn-rate", 0, "Users started per second (0 starts all at once)")
	flags.DurationP("duration", "d", 0, "How long to run the test (0 runs until interrupted)")
	flags.String("identities", DefaultIdentities, "Path to the JSON identity pool")
	flags.Int64("seed", 0, "Base random seed (0 derives one from the clock)")
	flags.StringToInt("class", nil, "Spawn weight per behaviour class in name=weight form")
	flags.Int("setup-decks", DefaultSetupDecks, "Decks created by each default-class user on start")

	// Output
	flags.Bool("json-output", false, "Emit JSON formatted report")
	flags.Bool("log-errors", false, "Log each failed request")
	flags.String("log-level", DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")

	// Tracing
	flags.String("tracing-endpoint", "", "OTLP collector endpoint for request spans")
	flags.String("tracing-protocol", "", "OTLP protocol: grpc or http")
	flags.String("tracing-service-name", "", "Service name reported with spans")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests traced (0..1)")
	flags.Bool("tracing-insecure", false, "Disable TLS for the OTLP exporter")
	flags.Bool("tracing-propagate", true, "Inject W3C trace context headers into requests")
}

func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\n%s\n\nFlags:\n", cmd.UseLine(), cmd.Short)
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	str := func(name string, dst *string) {
		if err != nil || !fs.Changed(name) {
			return
		}
		var val string
		if val, err = fs.GetString(name); err == nil {
			*dst = strings.TrimSpace(val)
		}
	}
	boolean := func(name string, dst *bool) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetBool(name)
	}
	float := func(name string, dst *float64) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetFloat64(name)
	}
	duration := func(name string, dst *time.Duration) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetDuration(name)
	}
	integer := func(name string, dst *int) {
		if err != nil || !fs.Changed(name) {
			return
		}
		*dst, err = fs.GetInt(name)
	}

	str("target", &cfg.TargetURL)
	str("base-path", &cfg.BasePath)
	duration("timeout", &cfg.Timeout)
	integer("users", &cfg.Users)
	float("spawn-rate", &cfg.SpawnRate)
	duration("duration", &cfg.Duration)
	str("identities", &cfg.Identities)
	integer("setup-decks", &cfg.SetupDecks)
	boolean("json-output", &cfg.JSONOutput)
	boolean("log-errors", &cfg.LogErrors)
	str("log-level", &cfg.LogLevel)
	str("metrics-addr", &cfg.MetricsAddr)
	str("tracing-endpoint", &cfg.Tracing.Endpoint)
	str("tracing-protocol", &cfg.Tracing.Protocol)
	str("tracing-service-name", &cfg.Tracing.ServiceName)
	float("tracing-sample-rate", &cfg.Tracing.SampleRate)
	boolean("tracing-insecure", &cfg.Tracing.Insecure)
	if err != nil {
		return err
	}

	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = &val
	}

	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}

	if fs.Changed("class") {
		classes, err := fs.GetStringToInt("class")
		if err != nil {
			return err
		}
		cfg.Classes = make(map[string]int, len(classes))
		for name, weight := range classes {
			key := strings.ToLower(strings.TrimSpace(name))
			if _, dup := cfg.Classes[key]; dup {
				return fmt.Errorf("class %s given more than once", key)
			}
			cfg.Classes[key] = weight
		}
	}

	vals, err := fs.GetStringSlice("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	return nil
}
