package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// AllocationMetrics records disbursement allocation outcomes.
type AllocationMetrics struct {
	duration *prometheus.HistogramVec
	records  prometheus.Counter
	surplus  prometheus.Counter
	failures *prometheus.CounterVec
}

// NewAllocationMetrics registers the allocation metrics on the provided registerer.
func NewAllocationMetrics(reg prometheus.Registerer) *AllocationMetrics {
	if reg == nil {
		return &AllocationMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "allocation_duration_seconds",
		Help:    "Duration of disbursement allocation batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	records := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_records_total",
		Help: "Disbursement records written by the allocator.",
	})
	surplus := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "allocation_surplus_batches_total",
		Help: "Allocation batches that finished with unallocated surplus.",
	})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "allocation_failures_total",
		Help: "Failed allocation attempts by error code.",
	}, []string{"code"})
	reg.MustRegister(duration, records, surplus, failures)
	return &AllocationMetrics{
		duration: duration,
		records:  records,
		surplus:  surplus,
		failures: failures,
	}
}

// ObserveBatch records the duration and record count for a committed batch.
func (m *AllocationMetrics) ObserveBatch(duration time.Duration, recordCount int, hadSurplus bool) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues("ok").Observe(duration.Seconds())
	m.records.Add(float64(recordCount))
	if hadSurplus {
		m.surplus.Inc()
	}
}

// ObserveFailure records a failed allocation attempt.
func (m *AllocationMetrics) ObserveFailure(duration time.Duration, code string) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues("error").Observe(duration.Seconds())
	m.failures.WithLabelValues(code).Inc()
}
