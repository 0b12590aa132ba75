package dispatch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the dispatcher's Prometheus collectors.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	inflight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "toolcall_dispatch_total",
				Help: "Total number of dispatched tool calls by outcome",
			},
			[]string{"namespace", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "toolcall_dispatch_duration_seconds",
				Help:    "Duration of tool calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"namespace"},
		),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "toolcall_inflight",
			Help: "Tool calls currently running",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.duration, m.inflight)
	}
	return m
}

// observe records a settled call. Namespaces that did not resolve are
// counted under "unknown" to bound label cardinality.
func (m *Metrics) observe(namespace string, phase Phase, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(namespace, phase.String()).Inc()
	m.duration.WithLabelValues(namespace).Observe(elapsed.Seconds())
}

func (m *Metrics) start() {
	if m != nil {
		m.inflight.Inc()
	}
}

func (m *Metrics) done() {
	if m != nil {
		m.inflight.Dec()
	}
}
