package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/memora/memora-load/internal/metrics"
)

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats) {
	fmt.Fprintln(w, "\n--- Load Test Results ---")
	fmt.Fprintf(w, "Total Requests:    %d\n", stats.Total)
	fmt.Fprintf(w, "Successful:        %d\n", stats.Successes)
	fmt.Fprintf(w, "Rate Limited:      %d\n", stats.SoftFailures)
	fmt.Fprintf(w, "Failed:            %d\n", stats.Failures)
	fmt.Fprintf(w, "Duration:          %s\n", stats.Duration)
	fmt.Fprintf(w, "Requests/sec:      %.2f\n", stats.RequestsPerSec)
	fmt.Fprintln(w, "\nLatency:")
	fmt.Fprintf(w, "  Min:             %s\n", stats.MinLatency)
	fmt.Fprintf(w, "  Max:             %s\n", stats.MaxLatency)
	fmt.Fprintf(w, "  Mean:            %s\n", stats.MeanLatency)
	fmt.Fprintf(w, "  P50:             %s\n", stats.P50Latency)
	fmt.Fprintf(w, "  P90:             %s\n", stats.P90Latency)
	fmt.Fprintf(w, "  P99:             %s\n", stats.P99Latency)

	if len(stats.FailureKinds) > 0 {
		fmt.Fprintln(w, "\nFailure Kinds:")
		writeCounts(w, stats.FailureKinds, "  ", nil)
	}
	if len(stats.Errors) > 0 {
		fmt.Fprintln(w, "\nErrors:")
		writeCounts(w, stats.Errors, "  ", nil)
	}
	if len(stats.StatusBuckets) > 0 {
		fmt.Fprintln(w, "\nStatus Buckets:")
		writeStatusBuckets(w, stats.StatusBuckets, "  ")
	}

	if len(stats.Requests) > 0 {
		fmt.Fprintln(w, "\nRequest Breakdown:")
		for _, name := range requestsByTotal(stats) {
			req := stats.Requests[name]
			share := 0.0
			if stats.Total > 0 {
				share = (float64(req.Total) / float64(stats.Total)) * 100
			}

			fmt.Fprintf(
				w,
				"  - %s: total=%d (%.1f%%), successes=%d, rate_limited=%d, failures=%d, rps=%.2f, p50=%.1fms, p99=%.1fms\n",
				name,
				req.Total,
				share,
				req.Successes,
				req.SoftFailures,
				req.Failures,
				req.RequestsPerSec,
				req.P50LatencyMs,
				req.P99LatencyMs,
			)
		}
	}
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(stats)
}

func requestsByTotal(stats metrics.Stats) []string {
	names := make([]string, 0, len(stats.Requests))
	for name := range stats.Requests {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := stats.Requests[names[i]], stats.Requests[names[j]]
		if a.Total == b.Total {
			return names[i] < names[j]
		}
		return a.Total > b.Total
	})
	return names
}

func writeCounts(w io.Writer, counts map[string]int, indent string, label func(string) string) {
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] == counts[keys[j]] {
			return keys[i] < keys[j]
		}
		return counts[keys[i]] > counts[keys[j]]
	})
	for _, key := range keys {
		name := key
		if label != nil {
			name = label(key)
		}
		fmt.Fprintf(w, "%s%s: %d\n", indent, name, counts[key])
	}
}

func writeStatusBuckets(w io.Writer, buckets map[string]map[string]int, indent string) {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, row := range rows {
		fmt.Fprintf(w, "%s%s %s: %d\n", indent, row.Request, row.Code, row.Count)
	}
}
