// Package metrics exposes Prometheus counters for API operations and leaderboard writes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "club_challenges"

// Исходы пересчета таблицы лидеров.
const (
	LeaderboardWritten = "written"
	LeaderboardSkipped = "skipped"
	LeaderboardRebuilt = "rebuilt"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	registry          *prometheus.Registry
	operations        *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	leaderboardWrites *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "API operations by name and result code.",
		}, []string{"operation", "code"}),
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "API operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		leaderboardWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leaderboard_updates_total",
			Help:      "Leaderboard recomputations by outcome.",
		}, []string{"outcome"}),
	}
	registry.MustRegister(m.operations, m.operationDuration, m.leaderboardWrites)
	return m
}

// ObserveOperation records one API operation. code is "OK" or a fault code.
func (m *Metrics) ObserveOperation(operation, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, code).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) LeaderboardUpdate(outcome string) {
	if m == nil {
		return
	}
	m.leaderboardWrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
