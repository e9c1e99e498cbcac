package metrics

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/memora/memora-load/internal/classify"
)

const shardCount = 32

// RequestMetadata labels a recorded request.
type RequestMetadata struct {
	// Request is the report label, e.g. "POST Create Deck".
	Request string
	Task    string
	Class   string
	Method  string
	Route   string
}

// Collector records per-request metrics in a thread-safe manner.
type Collector struct {
	stats *shardedStats
	start atomic.Int64
}

// Stats represents aggregated metrics.
type Stats struct {
	Total          int64         `json:"total"`
	Successes      int64         `json:"successes"`
	SoftFailures   int64         `json:"soft_failures"`
	Failures       int64         `json:"failures"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`
	Duration       time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	DurationMs    float64 `json:"duration_ms"`

	// Errors counts hard failures by FailureLabel.
	Errors        map[string]int            `json:"-"`
	FailureKinds  map[string]int            `json:"failure_kinds,omitempty"`
	StatusBuckets map[string]map[string]int `json:"status_buckets,omitempty"`
	Requests      map[string]RequestStats   `json:"requests,omitempty"`
}

// RequestStats is the per-label breakdown.
type RequestStats struct {
	Total          int64   `json:"total"`
	Successes      int64   `json:"successes"`
	SoftFailures   int64   `json:"soft_failures"`
	Failures       int64   `json:"failures"`
	RequestsPerSec float64 `json:"requests_per_sec"`
	MeanLatencyMs  float64 `json:"mean_latency_ms"`
	P50LatencyMs   float64 `json:"p50_latency_ms"`
	P90LatencyMs   float64 `json:"p90_latency_ms"`
	P99LatencyMs   float64 `json:"p99_latency_ms"`
	MaxLatencyMs   float64 `json:"max_latency_ms"`
}

func NewCollector() *Collector {
	c := &Collector{stats: newShardedStats()}
	c.Start()
	return c
}

// Start resets the reference time used for Elapsed.
func (c *Collector) Start() {
	c.start.Store(time.Now().UnixNano())
}

// Elapsed returns the time since Start.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(time.Unix(0, c.start.Load()))
}

// RecordRequest records a single classified request. Skipped outcomes
// issued no request and are ignored.
func (c *Collector) RecordRequest(latency time.Duration, outcome classify.Outcome, meta *RequestMetadata) {
	if outcome.Class == classify.Skipped {
		return
	}
	request := ""
	if meta != nil {
		request = meta.Request
	}
	c.stats.record(latency, outcome, request)
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	total, requests, errs, kinds, statuses := c.stats.merge()

	stats := total.stats(elapsed)
	stats.Duration = elapsed
	stats.DurationMs = millis(elapsed)

	if len(errs) > 0 {
		stats.Errors = errs
	}
	if len(kinds) > 0 {
		stats.FailureKinds = kinds
	}
	if len(statuses) > 0 {
		stats.StatusBuckets = statuses
	}
	if len(requests) > 0 {
		stats.Requests = make(map[string]RequestStats, len(requests))
		for name, b := range requests {
			stats.Requests[name] = b.requestStats(elapsed)
		}
	}
	return stats
}

// GetErrorBreakdown returns hard failure counts keyed by FailureLabel.
func (c *Collector) GetErrorBreakdown() map[string]int {
	_, _, errs, _, _ := c.stats.merge()
	return errs
}

type bucket struct {
	hist         *hdrhistogram.Histogram
	successes    int64
	softFailures int64
	failures     int64
	minLatency   time.Duration
	maxLatency   time.Duration
	sumLatency   time.Duration
}

func newBucket() *bucket {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	return &bucket{hist: hdrhistogram.New(1, 60_000_000, 3)}
}

func (b *bucket) total() int64 {
	return b.successes + b.softFailures + b.failures
}

func (b *bucket) record(latency time.Duration, class classify.Classification) {
	if latency > 0 {
		us := latency.Microseconds()
		if us < b.hist.LowestTrackableValue() {
			us = b.hist.LowestTrackableValue()
		}
		if us > b.hist.HighestTrackableValue() {
			us = b.hist.HighestTrackableValue()
		}
		_ = b.hist.RecordValue(us)
	}
	b.sumLatency += latency
	if b.total() == 0 || latency < b.minLatency {
		b.minLatency = latency
	}
	if latency > b.maxLatency {
		b.maxLatency = latency
	}

	switch class {
	case classify.Success:
		b.successes++
	case classify.SoftFailure:
		b.softFailures++
	default:
		b.failures++
	}
}

func (b *bucket) merge(other *bucket) {
	if other.total() == 0 {
		return
	}
	if b.total() == 0 || other.minLatency < b.minLatency {
		b.minLatency = other.minLatency
	}
	if other.maxLatency > b.maxLatency {
		b.maxLatency = other.maxLatency
	}
	b.sumLatency += other.sumLatency
	b.successes += other.successes
	b.softFailures += other.softFailures
	b.failures += other.failures
	b.hist.Merge(other.hist)
}

func (b *bucket) quantile(q float64) time.Duration {
	if b.hist.TotalCount() == 0 {
		return 0
	}
	return time.Duration(b.hist.ValueAtQuantile(q)) * time.Microsecond
}

func (b *bucket) stats(elapsed time.Duration) Stats {
	total := b.total()
	s := Stats{
		Total:        total,
		Successes:    b.successes,
		SoftFailures: b.softFailures,
		Failures:     b.failures,
		MinLatency:   b.minLatency,
		MaxLatency:   b.maxLatency,
		P50Latency:   b.quantile(50),
		P90Latency:   b.quantile(90),
		P99Latency:   b.quantile(99),
	}
	if total > 0 {
		s.MeanLatency = time.Duration(int64(b.sumLatency) / total)
	}
	if elapsed > 0 && total > 0 {
		s.RequestsPerSec = float64(total) / elapsed.Seconds()
	}
	s.MinLatencyMs = millis(s.MinLatency)
	s.MaxLatencyMs = millis(s.MaxLatency)
	s.MeanLatencyMs = millis(s.MeanLatency)
	s.P50LatencyMs = millis(s.P50Latency)
	s.P90LatencyMs = millis(s.P90Latency)
	s.P99LatencyMs = millis(s.P99Latency)
	return s
}

func (b *bucket) requestStats(elapsed time.Duration) RequestStats {
	s := b.stats(elapsed)
	return RequestStats{
		Total:          s.Total,
		Successes:      s.Successes,
		SoftFailures:   s.SoftFailures,
		Failures:       s.Failures,
		RequestsPerSec: s.RequestsPerSec,
		MeanLatencyMs:  s.MeanLatencyMs,
		P50LatencyMs:   s.P50LatencyMs,
		P90LatencyMs:   s.P90LatencyMs,
		P99LatencyMs:   s.P99LatencyMs,
		MaxLatencyMs:   s.MaxLatencyMs,
	}
}

type shard struct {
	mu       sync.Mutex
	bucket   *bucket
	requests map[string]*bucket
	errors   map[string]int64
	kinds    map[string]int64
	statuses map[string]map[string]int
}

func newShard() *shard {
	return &shard{
		bucket:   newBucket(),
		requests: make(map[string]*bucket),
		errors:   make(map[string]int64),
		kinds:    make(map[string]int64),
		statuses: make(map[string]map[string]int),
	}
}

// shardedStats spreads writes over independent locks; shards are merged on read.
type shardedStats struct {
	shards [shardCount]*shard
	next   atomic.Uint64
}

func newShardedStats() *shardedStats {
	s := &shardedStats{}
	for i := range s.shards {
		s.shards[i] = newShard()
	}
	return s
}

func (s *shardedStats) record(latency time.Duration, outcome classify.Outcome, request string) {
	sh := s.shards[s.next.Add(1)%shardCount]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.bucket.record(latency, outcome.Class)
	if request != "" {
		b, ok := sh.requests[request]
		if !ok {
			b = newBucket()
			sh.requests[request] = b
		}
		b.record(latency, outcome.Class)
	}

	if outcome.Class == classify.Success {
		return
	}
	label := request
	if label == "" {
		label = "request"
	}
	codes, ok := sh.statuses[label]
	if !ok {
		codes = make(map[string]int)
		sh.statuses[label] = codes
	}
	codes[statusCode(outcome)]++

	if outcome.Failed() {
		sh.kinds[string(outcome.Kind)]++
		sh.errors[FailureLabel(outcome)]++
	}
}

func (s *shardedStats) merge() (*bucket, map[string]*bucket, map[string]int, map[string]int, map[string]map[string]int) {
	total := newBucket()
	requests := make(map[string]*bucket)
	errs := make(map[string]int)
	kinds := make(map[string]int)
	statuses := make(map[string]map[string]int)

	for _, sh := range s.shards {
		sh.mu.Lock()
		total.merge(sh.bucket)
		for name, b := range sh.requests {
			dst, ok := requests[name]
			if !ok {
				dst = newBucket()
				requests[name] = dst
			}
			dst.merge(b)
		}
		for k, v := range sh.errors {
			errs[k] += int(v)
		}
		for k, v := range sh.kinds {
			kinds[k] += int(v)
		}
		for label, codes := range sh.statuses {
			dst, ok := statuses[label]
			if !ok {
				dst = make(map[string]int, len(codes))
				statuses[label] = dst
			}
			for code, n := range codes {
				dst[code] += n
			}
		}
		sh.mu.Unlock()
	}
	return total, requests, errs, kinds, statuses
}

func statusCode(outcome classify.Outcome) string {
	if outcome.Status > 0 {
		return strconv.Itoa(outcome.Status)
	}
	return string(classify.KindTransport)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
