// Package observability provides Prometheus metrics and OpenTelemetry tracing
// for the gateway.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "legalhub"

// PoolStats is the read side of the worker pool
type PoolStats interface {
	Queued() int
	Running() int
}

// Sizer reports how many entries a store holds
type Sizer interface {
	Len() int
}

// Metrics holds the gateway's collectors
type Metrics struct {
	registry prometheus.Registerer
	gatherer prometheus.Gatherer

	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
}

// NewMetrics registers the tool-call collectors on a fresh registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		gatherer: reg,
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tool_calls_total",
				Help:      "Total number of MCP tool calls",
			},
			[]string{"tool", "status", "error_kind"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "tool_call_duration_seconds",
				Help:      "MCP tool call duration in seconds",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"tool"},
		),
	}
	reg.MustRegister(m.toolCalls, m.toolDuration)
	return m
}

// RecordToolCall counts one call and observes its duration. An empty kind is
// recorded as "none".
func (m *Metrics) RecordToolCall(tool, status, kind string, duration time.Duration) {
	if kind == "" {
		kind = "none"
	}
	m.toolCalls.WithLabelValues(tool, status, kind).Inc()
	m.toolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// ObservePool exports queue depth and busy workers
func (m *Metrics) ObservePool(p PoolStats) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_pool_queued",
			Help:      "Jobs waiting for a worker",
		}, func() float64 { return float64(p.Queued()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "worker_pool_running",
			Help:      "Jobs currently executing",
		}, func() float64 { return float64(p.Running()) }),
	)
}

// ObserveRegistry exports the number of tracked sessions and cached topics
func (m *Metrics) ObserveRegistry(sessions, topics Sizer) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "research_sessions",
			Help:      "Research sessions held in the registry",
		}, func() float64 { return float64(sessions.Len()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "topic_cache_entries",
			Help:      "Topics held in the research cache",
		}, func() float64 { return float64(topics.Len()) }),
	)
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{Registry: m.registry})
}
