// Package metrics holds the Prometheus instruments of the dashboard backend.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the dashboard backend.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP API
	HTTPRequests   *prometheus.CounterVec   // labels: method, route, status
	HTTPDuration   *prometheus.HistogramVec // labels: method, route
	WSClients      prometheus.Gauge
	WSMessagesSent prometheus.Counter

	// Indicator cache
	CacheHits    *prometheus.CounterVec // labels: tier=memory|redis
	CacheMisses  prometheus.Counter
	CacheEntries prometheus.Gauge

	// Upstream providers
	UpstreamRequests *prometheus.CounterVec   // labels: provider, op, outcome=ok|error
	UpstreamDuration *prometheus.HistogramVec // labels: provider, op
	IndicatorCompute prometheus.Histogram

	// Analyses
	AnalysesTotal       *prometheus.CounterVec // labels: source=llm|fallback|debounced
	LLMBreakerState     prometheus.Gauge       // 0=closed, 1=open, 2=half-open
	AnalysisSaveFailure prometheus.Counter
}

// New registers all metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests served, by route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_ws_clients",
			Help: "Connected live-price WebSocket clients",
		}),
		WSMessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_ws_messages_sent_total",
			Help: "Kline messages pushed to WebSocket clients",
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_indicator_cache_hits_total",
			Help: "Indicator cache hits by tier",
		}, []string{"tier"}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_indicator_cache_misses_total",
			Help: "Indicator cache misses (set recomputed)",
		}),
		CacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_indicator_cache_entries",
			Help: "Entries in the in-memory indicator cache",
		}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_upstream_requests_total",
			Help: "Calls to upstream providers by outcome",
		}, []string{"provider", "op", "outcome"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_upstream_duration_seconds",
			Help:    "Upstream provider latency",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "op"}),
		IndicatorCompute: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_indicator_compute_duration_seconds",
			Help:    "Time to compute a full IndicatorSet",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_analyses_total",
			Help: "Analyses produced, by source",
		}, []string{"source"}),
		LLMBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_llm_circuit_breaker_state",
			Help: "LLM circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		AnalysisSaveFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_analysis_save_failures_total",
			Help: "Analyses that could not be persisted",
		}),
	}

	reg.MustRegister(
		m.HTTPRequests, m.HTTPDuration, m.WSClients, m.WSMessagesSent,
		m.CacheHits, m.CacheMisses, m.CacheEntries,
		m.UpstreamRequests, m.UpstreamDuration, m.IndicatorCompute,
		m.AnalysesTotal, m.LLMBreakerState, m.AnalysisSaveFailure,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveUpstream records one provider call.
func (m *Metrics) ObserveUpstream(provider, op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.UpstreamRequests.WithLabelValues(provider, op, outcome).Inc()
	m.UpstreamDuration.WithLabelValues(provider, op).Observe(time.Since(start).Seconds())
}
