// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "campus"

// Metrics is a set of gateway collectors bound to their own registry, so
// several gateways can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	deltas         *prometheus.HistogramVec
	relayedBytes   *prometheus.CounterVec
	upstreamErrors *prometheus.CounterVec
	rateLimited    prometheus.Counter
	droppedJobs    prometheus.Counter
	published      *prometheus.CounterVec
}

// New creates a Metrics with Go runtime and process collectors registered.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Gateway requests by route, persona and status",
		}, []string{"route", "persona", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_request_duration_seconds",
			Help:      "Time from request to end of relay",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"route"}),
		deltas: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_stream_deltas",
			Help:      "Content deltas relayed per streamed turn",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000},
		}, []string{"persona"}),
		relayedBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_relayed_bytes_total",
			Help:      "Upstream bytes relayed to clients",
		}, []string{"persona"}),
		upstreamErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_errors_total",
			Help:      "Failed gateway requests by error code",
		}, []string{"code"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_local_rate_limited_total",
			Help:      "Requests rejected by the per-subject limiter",
		}),
		droppedJobs: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_telemetry_dropped_total",
			Help:      "Telemetry jobs dropped because the queue was full",
		}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_events_published_total",
			Help:      "Relay events handed to the event stream",
		}, []string{"result"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished gateway request.
func (m *Metrics) ObserveRequest(route, persona string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(route, persona, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveStream records the shape of one relayed stream.
func (m *Metrics) ObserveStream(persona string, deltas int, bytes int64) {
	m.deltas.WithLabelValues(persona).Observe(float64(deltas))
	m.relayedBytes.WithLabelValues(persona).Add(float64(bytes))
}

// ObserveError counts a request that failed with code.
func (m *Metrics) ObserveError(code string) {
	m.upstreamErrors.WithLabelValues(code).Inc()
}

// RateLimited counts a local limiter rejection.
func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

// JobDropped counts a telemetry job dropped on a full queue.
func (m *Metrics) JobDropped() {
	m.droppedJobs.Inc()
}

// Published counts an event stream publish attempt.
func (m *Metrics) Published(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.published.WithLabelValues(result).Inc()
}
