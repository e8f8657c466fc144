package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics exposes counters/histograms for polling synchronizers.
type SyncMetrics struct {
	cycleTotal          *prometheus.CounterVec
	cycleLatency        *prometheus.HistogramVec
	consecutiveFailures *prometheus.GaugeVec
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		cycleTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telehealth",
			Subsystem: "sync",
			Name:      "cycle_total",
			Help:      "Total sync cycles per slice",
		}, []string{"slice", "status"}),
		cycleLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "telehealth",
			Subsystem: "sync",
			Name:      "cycle_latency_seconds",
			Help:      "Latency of one fetch-and-apply cycle",
			Buckets:   prometheus.DefBuckets,
		}, []string{"slice"}),
		consecutiveFailures: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "telehealth",
			Subsystem: "sync",
			Name:      "consecutive_failures",
			Help:      "Consecutive failed cycles per slice",
		}, []string{"slice"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.cycleTotal, m.cycleLatency, m.consecutiveFailures)
	return m
}

func (m *SyncMetrics) ObserveCycle(slice, status string, seconds float64) {
	if m == nil {
		return
	}
	m.cycleTotal.WithLabelValues(slice, status).Inc()
	m.cycleLatency.WithLabelValues(slice).Observe(seconds)
}

func (m *SyncMetrics) SetConsecutiveFailures(slice string, n int) {
	if m == nil {
		return
	}
	m.consecutiveFailures.WithLabelValues(slice).Set(float64(n))
}
