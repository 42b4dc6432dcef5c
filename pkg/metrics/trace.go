package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TraceMetrics records payment-trace traversal statistics.
type TraceMetrics struct {
	duration     prometheus.Histogram
	nodesVisited prometheus.Histogram
	edges        prometheus.Histogram
	skippedNodes prometheus.Counter
}

// NewTraceMetrics registers the trace metrics on the provided registerer.
func NewTraceMetrics(reg prometheus.Registerer) *TraceMetrics {
	if reg == nil {
		return &TraceMetrics{}
	}
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trace_duration_seconds",
		Help:    "Wall-clock duration of payment traces in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	nodesVisited := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trace_nodes_visited",
		Help:    "Addresses dequeued per trace.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	edges := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trace_consolidated_edges",
		Help:    "Consolidated edges returned per trace.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	skippedNodes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trace_skipped_nodes_total",
		Help: "Addresses skipped because the ledger fetch failed.",
	})
	reg.MustRegister(duration, nodesVisited, edges, skippedNodes)
	return &TraceMetrics{
		duration:     duration,
		nodesVisited: nodesVisited,
		edges:        edges,
		skippedNodes: skippedNodes,
	}
}

// ObserveTrace records the shape of a completed trace.
func (m *TraceMetrics) ObserveTrace(duration time.Duration, nodesVisited, edgeCount, skipped int) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.Observe(duration.Seconds())
	m.nodesVisited.Observe(float64(nodesVisited))
	m.edges.Observe(float64(edgeCount))
	m.skippedNodes.Add(float64(skipped))
}
