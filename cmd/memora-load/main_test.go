package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/memora/memora-load/internal/config"
	"github.com/memora/memora-load/internal/identity"
	"github.com/memora/memora-load/internal/runner"
)

type api struct {
	hits atomic.Int64
	ids  atomic.Int64
}

func (a *api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.hits.Add(1)
	_, _ = io.Copy(io.Discard, r.Body)
	if r.Header.Get("Authorization") != "Bearer tok" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	switch {
	case r.Method == http.MethodPost && (r.URL.Path == "/api/v1/users/" || r.URL.Path == "/api/v1/decks/"):
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]int64{"id": a.ids.Add(1)})
	default:
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{}`)
	}
}

func writeIdentities(t *testing.T, ids []identity.Identity) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	if err := identity.Save(path, ids); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return path
}

func TestRunReportsJSON(t *testing.T) {
	target := &api{}
	srv := httptest.NewServer(target)
	defer srv.Close()
	ids := writeIdentities(t, []identity.Identity{{UID: "u1", Token: "tok"}})

	var out bytes.Buffer
	err := run(context.Background(), []string{
		"--target", srv.URL,
		"--users", "2",
		"--duration", "300ms",
		"--class", "default=1",
		"--setup-decks", "1",
		"--identities", ids,
		"--json-output",
		"--log-level", "error",
		"--seed", "5",
	}, &out)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var report struct {
		Total     int64 `json:"total"`
		Successes int64 `json:"successes"`
		Failures  int64 `json:"failures"`
		Requests  map[string]struct {
			Total int64 `json:"total"`
		} `json:"requests"`
	}
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v\n%s", err, out.String())
	}
	if report.Total != target.hits.Load() {
		t.Fatalf("report total %d, server hits %d", report.Total, target.hits.Load())
	}
	if report.Requests["Setup: Create User"].Total != 2 || report.Requests["Setup: Create Initial Deck"].Total != 2 {
		t.Fatalf("unexpected setup counts: %+v", report.Requests)
	}
	if report.Failures != 0 {
		t.Fatalf("unexpected failures: %d", report.Failures)
	}
}

func TestEmptyPoolExitsWithConfigStatus(t *testing.T) {
	target := &api{}
	srv := httptest.NewServer(target)
	defer srv.Close()

	err := run(context.Background(), []string{
		"--target", srv.URL,
		"--identities", filepath.Join(t.TempDir(), "missing.json"),
		"--duration", "1s",
		"--log-level", "error",
	}, io.Discard)
	var cfgErr *runner.ConfigError
	if !errors.As(err, &cfgErr) || !errors.Is(err, identity.ErrEmptyPool) {
		t.Fatalf("expected ConfigError wrapping ErrEmptyPool, got %v", err)
	}
	if exitCode(err) != exitConfig {
		t.Fatalf("exit code = %d, want %d", exitCode(err), exitConfig)
	}
	if target.hits.Load() != 0 {
		t.Fatalf("expected no requests, got %d", target.hits.Load())
	}
}

func TestUnknownClassIsConfigError(t *testing.T) {
	err := run(context.Background(), []string{
		"--target", "http://localhost:1",
		"--class", "mystery=1",
		"--log-level", "error",
	}, io.Discard)
	if exitCode(err) != exitConfig || !strings.Contains(err.Error(), "unknown user class mystery") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestInvalidConfigExitsWithConfigStatus(t *testing.T) {
	err := run(context.Background(), []string{"--target", "localhost", "--users", "0"}, io.Discard)
	var valErr config.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if exitCode(err) != exitConfig {
		t.Fatalf("exit code = %d, want %d", exitCode(err), exitConfig)
	}
}

func TestHardFailuresReturnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	ids := writeIdentities(t, []identity.Identity{{Token: "tok"}})

	err := run(context.Background(), []string{
		"--target", srv.URL,
		"--users", "1",
		"--duration", "200ms",
		"--setup-decks", "0",
		"--class", "default=1",
		"--seed", "11",
		"--identities", ids,
		"--log-level", "error",
	}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "requests failed") {
		t.Fatalf("expected failed-requests error, got %v", err)
	}
	if exitCode(err) != 1 {
		t.Fatalf("exit code = %d, want 1", exitCode(err))
	}
}

func TestHelpIsNotAnError(t *testing.T) {
	stdout := os.Stdout
	devnull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer devnull.Close()
	os.Stdout = devnull
	defer func() { os.Stdout = stdout }()

	if err := run(context.Background(), []string{"--help"}, io.Discard); err != nil {
		t.Fatalf("help returned %v", err)
	}
}
