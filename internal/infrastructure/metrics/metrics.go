package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus registry and every collector the application records into
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TaskActions     *prometheus.CounterVec
	StatsCache      *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		TaskActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_actions_total",
				Help: "Task lifecycle actions by outcome",
			},
			[]string{"action", "result"},
		),
		StatsCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "task_stats_cache_total",
				Help: "Task stats cache lookups by outcome",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.TaskActions,
		m.StatsCache,
		collectors.NewGoCollector(),
	)

	return m
}

// ObserveTaskAction counts one lifecycle action. result is "ok", "noop", "invalid",
// "rejected" or "error".
func (m *Metrics) ObserveTaskAction(action, result string) {
	if m == nil {
		return
	}
	m.TaskActions.WithLabelValues(action, result).Inc()
}

// ObserveStatsCache counts one cache lookup: "hit", "miss" or "error".
func (m *Metrics) ObserveStatsCache(result string) {
	if m == nil {
		return
	}
	m.StatsCache.WithLabelValues(result).Inc()
}
