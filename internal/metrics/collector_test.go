package metrics_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/memora/memora-load/internal/classify"
	"github.com/memora/memora-load/internal/metrics"
)

var ok = classify.Outcome{Class: classify.Success, Status: 200}

func TestCollectorLatencyStats(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordRequest(10*time.Millisecond, ok, nil)
	c.RecordRequest(20*time.Millisecond, ok, nil)
	c.RecordRequest(30*time.Millisecond, ok, nil)
	c.RecordRequest(40*time.Millisecond, ok, nil)
	c.RecordRequest(50*time.Millisecond, ok, nil)

	stats := c.Stats(0)

	if stats.Total != 5 {
		t.Errorf("expected total 5, got %d", stats.Total)
	}
	if stats.Successes != 5 {
		t.Errorf("expected successes 5, got %d", stats.Successes)
	}
	if stats.Failures != 0 {
		t.Errorf("expected failures 0, got %d", stats.Failures)
	}
	if stats.MinLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", stats.MinLatency)
	}
	if stats.MaxLatency != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", stats.MaxLatency)
	}
	if stats.MeanLatency != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", stats.MeanLatency)
	}
}

func TestPercentilesCalculations(t *testing.T) {
	c := metrics.NewCollector()

	for i := 1; i <= 100; i++ {
		c.RecordRequest(time.Duration(i)*time.Millisecond, ok, nil)
	}

	stats := c.Stats(0)

	if stats.P50Latency < 49*time.Millisecond || stats.P50Latency > 51*time.Millisecond {
		t.Errorf("expected P50 ~50ms, got %s", stats.P50Latency)
	}
	if stats.P90Latency < 89*time.Millisecond || stats.P90Latency > 91*time.Millisecond {
		t.Errorf("expected P90 ~90ms, got %s", stats.P90Latency)
	}
	if stats.P99Latency < 98*time.Millisecond || stats.P99Latency > 101*time.Millisecond {
		t.Errorf("expected P99 ~99ms, got %s", stats.P99Latency)
	}
}

func TestClassificationCounts(t *testing.T) {
	c := metrics.NewCollector()
	rule := classify.Accept(201)

	c.RecordRequest(time.Millisecond, rule.Classify(201, nil, nil), nil)
	c.RecordRequest(time.Millisecond, rule.Classify(429, nil, nil), nil)
	c.RecordRequest(time.Millisecond, rule.Classify(500, nil, nil), nil)
	c.RecordRequest(time.Millisecond, rule.Classify(0, nil, errors.New("refused")), nil)
	c.RecordRequest(0, classify.Skip(), nil)

	stats := c.Stats(time.Second)
	if stats.Total != 4 {
		t.Fatalf("expected skipped outcomes to be ignored, total = %d", stats.Total)
	}
	if stats.Successes != 1 || stats.SoftFailures != 1 || stats.Failures != 2 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.FailureKinds["server"] != 1 || stats.FailureKinds["transport"] != 1 {
		t.Fatalf("unexpected failure kinds: %v", stats.FailureKinds)
	}
}

func TestJSONReportSchema(t *testing.T) {
	c := metrics.NewCollector()

	c.RecordRequest(15*time.Millisecond, ok, &metrics.RequestMetadata{Request: "Health Check"})
	c.RecordRequest(25*time.Millisecond, classify.Outcome{Class: classify.SoftFailure, Status: 429}, &metrics.RequestMetadata{Request: "POST Create Deck"})

	stats := c.Stats(100 * time.Millisecond)

	data, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("failed to marshal stats: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	requiredFields := []string{"total", "successes", "soft_failures", "failures", "min_latency_ms", "max_latency_ms", "mean_latency_ms", "p50_latency_ms", "p90_latency_ms", "p99_latency_ms", "duration_ms", "requests_per_sec", "status_buckets", "requests"}
	for _, field := range requiredFields {
		if _, ok := parsed[field]; !ok {
			t.Errorf("missing field %q in JSON output", field)
		}
	}
	if _, exists := parsed["errors"]; exists {
		t.Errorf("errors field should not be in JSON output")
	}
}

func TestConcurrentRecording(t *testing.T) {
	c := metrics.NewCollector()

	var wg sync.WaitGroup
	workers := 10
	recordsPerWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < recordsPerWorker; j++ {
				c.RecordRequest(time.Millisecond, ok, nil)
			}
		}()
	}
	wg.Wait()

	stats := c.Stats(0)
	expected := workers * recordsPerWorker
	if stats.Total != int64(expected) {
		t.Errorf("expected total %d, got %d", expected, stats.Total)
	}
}

func TestRequestBreakdown(t *testing.T) {
	c := metrics.NewCollector()
	c.RecordRequest(10*time.Millisecond, ok, &metrics.RequestMetadata{Request: "GET Card"})
	c.RecordRequest(20*time.Millisecond, ok, &metrics.RequestMetadata{Request: "GET Card"})
	c.RecordRequest(15*time.Millisecond, ok, &metrics.RequestMetadata{Request: "GET Deck"})

	stats := c.Stats(2 * time.Second)
	if len(stats.Requests) != 2 {
		t.Fatalf("expected 2 request stats, got %d", len(stats.Requests))
	}
	card := stats.Requests["GET Card"]
	if card.Total != 2 {
		t.Fatalf("expected GET Card total 2, got %d", card.Total)
	}
	if card.P50LatencyMs == 0 {
		t.Fatalf("expected percentile calculations for GET Card")
	}
	if card.RequestsPerSec <= 0 {
		t.Fatalf("expected GET Card RPS to be > 0")
	}
}
