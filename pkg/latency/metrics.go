package latency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "interviewer"
	subsystem = "realtime"
)

// Metrics exposes the monitor's observations to Prometheus. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	stageLatency *prometheus.HistogramVec
	breaches     *prometheus.CounterVec
	bargeIns     prometheus.Counter
	degradations prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		stageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stage_latency_seconds",
			Help:      "Latency of each pipeline stage per turn.",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.15, 0.2, 0.3, 0.4, 0.6, 0.8, 1.2, 2, 5},
		}, []string{"stage"}),
		breaches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "budget_breaches_total",
			Help:      "Latency budget breaches by metric.",
		}, []string{"metric"}),
		bargeIns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "barge_ins_total",
			Help:      "Barge-in interrupts signalled to speech output.",
		}),
		degradations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "audio_only_degradations_total",
			Help:      "Sessions switched to audio-only after repeated avatar breaches.",
		}),
	}
}

func (m *Metrics) observeStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageLatency.WithLabelValues(stage).Observe(seconds)
}

func (m *Metrics) breach(metric string) {
	if m == nil {
		return
	}
	m.breaches.WithLabelValues(metric).Inc()
}

func (m *Metrics) bargeIn() {
	if m == nil {
		return
	}
	m.bargeIns.Inc()
}

func (m *Metrics) degraded() {
	if m == nil {
		return
	}
	m.degradations.Inc()
}
