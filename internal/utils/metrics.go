package utils

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector tracks mutation traffic across the engine. Backed
// by a private prometheus registry so multiple engines in one process
// (or one test binary) never collide on registration.
type MetricsCollector struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	latency    *prometheus.HistogramVec
}

func NewMetricsCollector() *MetricsCollector {
	registry := prometheus.NewRegistry()

	mc := &MetricsCollector{
		registry: registry,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_thread_operations_total",
			Help: "Mutation operations issued, by kind.",
		}, []string{"operation"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "review_thread_failures_total",
			Help: "Failed operations, by kind and error code.",
		}, []string{"operation", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "review_thread_operation_seconds",
			Help:    "Round-trip latency per operation kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	registry.MustRegister(mc.operations, mc.failures, mc.latency)
	return mc
}

// Registry exposes the collector for promhttp handlers.
func (mc *MetricsCollector) Registry() *prometheus.Registry {
	return mc.registry
}

func (mc *MetricsCollector) IncrementRequests(operation string) {
	mc.operations.WithLabelValues(operation).Inc()
}

func (mc *MetricsCollector) IncrementErrors(operation, code string) {
	if code == "" {
		code = "unknown"
	}
	mc.failures.WithLabelValues(operation, code).Inc()
}

func (mc *MetricsCollector) AddOperationLatency(operation string, duration time.Duration) {
	mc.latency.WithLabelValues(operation).Observe(duration.Seconds())
}
