// Package metrics aggregates classified requests for the run report.
//
// The central [Collector] is safe for concurrent use by every virtual user:
//
//	collector := metrics.NewCollector()
//	collector.RecordRequest(latency, outcome, &metrics.RequestMetadata{
//		Request: "GET Deck",
//		Task:    "get-deck",
//		Class:   "default",
//	})
//	stats := collector.Stats(collector.Elapsed())
//
// [Stats] reports successes, soft failures (HTTP 429) and hard failures,
// latency percentiles from an HDR histogram, a per-request breakdown and the
// status codes of every non-success response.
//
// Writes are spread over sharded locks and merged when Stats is called.
// [Exporter] mirrors the same records into Prometheus, and [Tee] combines
// sinks.
package metrics
