// Command memora-load simulates concurrent users against the Memora
// flashcard API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/memora/memora-load/internal/config"
	"github.com/memora/memora-load/internal/flashcards"
	"github.com/memora/memora-load/internal/httpclient"
	"github.com/memora/memora-load/internal/identity"
	"github.com/memora/memora-load/internal/logging"
	"github.com/memora/memora-load/internal/metrics"
	"github.com/memora/memora-load/internal/output"
	"github.com/memora/memora-load/internal/runner"
	"github.com/memora/memora-load/internal/scenario"
	"github.com/memora/memora-load/internal/tracing"
	"github.com/memora/memora-load/internal/vuser"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
	serviceName      = "memora-load"
)

// exitConfig is the process status for configurations that cannot run.
const exitConfig = 2

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	var cfgErr *runner.ConfigError
	var valErr config.ValidationError
	if errors.As(err, &cfgErr) || errors.As(err, &valErr) {
		return exitConfig
	}
	return 1
}

// userGauge tracks running users for the progress line and, when enabled,
// the Prometheus gauge.
type userGauge struct {
	active   atomic.Int64
	exporter *metrics.Exporter
}

func (g *userGauge) UserStarted() {
	g.active.Add(1)
	if g.exporter != nil {
		g.exporter.UserStarted()
	}
}

func (g *userGauge) UserStopped() {
	g.active.Add(-1)
	if g.exporter != nil {
		g.exporter.UserStopped()
	}
}

func (g *userGauge) Active() int64 {
	return g.active.Load()
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logging.New(cfg.LogLevel, serviceName)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	builder, err := httpclient.NewRequestBuilder(cfg.TargetURL, cfg.BasePath, cfg.Headers)
	if err != nil {
		return err
	}
	client := flashcards.New(
		httpclient.NewClient(cfg.Timeout),
		builder,
		flashcards.WithTracePropagation(provider.ShouldPropagate()),
	)

	pool, err := identity.Load(cfg.Identities)
	if err != nil {
		return err
	}
	classes, err := scenario.Resolve(cfg.Classes, cfg.SetupDecks)
	if err != nil {
		return &runner.ConfigError{Reason: "classes", Err: err}
	}

	collector := metrics.NewCollector()
	gauge := &userGauge{}
	sinks := []metrics.Sink{collector}
	if cfg.MetricsAddr != "" {
		gauge.exporter = metrics.NewExporter()
		sinks = append(sinks, gauge.exporter)
		stop := serveMetrics(cfg.MetricsAddr, gauge.exporter.Handler(), log)
		defer stop()
	}

	var failures vuser.FailureLogger
	if cfg.LogErrors {
		failures = logging.NewFailureLogger(log)
	}

	r := runner.New(runner.Options{
		Users:     cfg.Users,
		SpawnRate: cfg.SpawnRate,
		Duration:  cfg.Duration,
		Classes:   classes,
		Pool:      pool,
		Seed:      cfg.Seed,
		Client:    client,
		Recorder:  metrics.Tee(sinks...),
		Failures:  failures,
		Observer:  gauge,
		Tracer:    provider.Tracer(),
		Logger:    log,
	})

	var progress *output.ProgressReporter
	if !cfg.JSONOutput {
		progress = output.NewProgressReporter(collector, gauge.Active, progressInterval, stdout)
	}

	log.Info("load test starting",
		zap.String("target", builder.URL("")),
		zap.Int("users", cfg.Users),
		zap.Int("identities", pool.Len()),
		zap.Duration("duration", cfg.Duration),
		zap.Time("start", time.Now()),
	)

	collector.Start()
	if progress != nil {
		progress.Start()
	}
	result, err := r.Run(ctx)
	if progress != nil {
		progress.Stop()
		fmt.Fprintln(stdout)
	}
	if err != nil {
		return err
	}

	log.Info("load test finished",
		zap.String("target", builder.URL("")),
		zap.Int("users", result.Users),
		zap.Int64("requests", result.Requests),
		zap.Int64("skipped", result.Skipped),
		zap.Time("end", time.Now()),
	)

	stats := collector.Stats(result.Duration)
	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, stats); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, stats)
	}

	if stats.Failures > 0 {
		return fmt.Errorf("%d requests failed", stats.Failures)
	}
	return nil
}

// serveMetrics exposes handler on addr at /metrics until the returned stop
// function is called.
func serveMetrics(addr string, handler http.Handler, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server", zap.String("addr", addr), zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("addr", addr), zap.String("path", "/metrics"))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
