package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/memora/memora-load/internal/metrics"
)

// ActiveUsers reports how many virtual users are currently running.
type ActiveUsers func() int64

// ProgressReporter displays real-time progress updates.
type ProgressReporter struct {
	collector *metrics.Collector
	users     ActiveUsers
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
// users may be nil.
func NewProgressReporter(collector *metrics.Collector, users ActiveUsers, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		users:     users,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts progress updates.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
	}
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, p.line(time.Since(p.start)))
		case <-p.done:
			return
		}
	}
}

func (p *ProgressReporter) line(elapsed time.Duration) string {
	stats := p.collector.Stats(elapsed)
	line := "\r"
	if p.users != nil {
		line += fmt.Sprintf("Users: %d | ", p.users())
	}
	line += fmt.Sprintf("Requests: %d | Successes: %d | Rate Limited: %d | Failures: %d | RPS: %.1f",
		stats.Total, stats.Successes, stats.SoftFailures, stats.Failures, stats.RequestsPerSec)
	if names := requestsByTotal(stats); len(names) > 0 && stats.Total > 0 {
		req := stats.Requests[names[0]]
		share := (float64(req.Total) / float64(stats.Total)) * 100
		line += fmt.Sprintf(" | Top: %s (%.0f%%, P99 %.1fms)", names[0], share, req.P99LatencyMs)
	}
	return line
}
