package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memora/memora-load/internal/classify"
)

// Exporter mirrors recorded requests into Prometheus metrics.
type Exporter struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	users    prometheus.Gauge
}

// NewExporter registers the load generator's metrics on a private registry.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "memora_load",
			Name:      "requests_total",
			Help:      "Requests issued by virtual users, by outcome.",
		}, []string{"request", "class", "outcome", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "memora_load",
			Name:      "request_duration_seconds",
			Help:      "Request latency observed by virtual users.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"request"}),
		users: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "memora_load",
			Name:      "active_users",
			Help:      "Virtual users currently running.",
		}),
	}
	e.registry.MustRegister(e.requests, e.latency, e.users)
	return e
}

// RecordRequest implements the request sink interface.
func (e *Exporter) RecordRequest(latency time.Duration, outcome classify.Outcome, meta *RequestMetadata) {
	if outcome.Class == classify.Skipped {
		return
	}
	request, class := "request", ""
	if meta != nil {
		if meta.Request != "" {
			request = meta.Request
		}
		class = meta.Class
	}
	code := string(classify.KindTransport)
	if outcome.Status > 0 {
		code = strconv.Itoa(outcome.Status)
	}
	e.requests.WithLabelValues(request, class, outcome.Class.String(), code).Inc()
	e.latency.WithLabelValues(request).Observe(latency.Seconds())
}

// UserStarted and UserStopped track the active user gauge.
func (e *Exporter) UserStarted() { e.users.Inc() }

func (e *Exporter) UserStopped() { e.users.Dec() }

// Handler serves the registry in the Prometheus exposition format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}
