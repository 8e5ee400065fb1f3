package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the studio's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	turns            *prometheus.CounterVec
	turnDuration     *prometheus.HistogramVec
	capabilityCalls  *prometheus.CounterVec
	capabilityRetry  *prometheus.CounterVec
	activeTurns      prometheus.Gauge
	sessionsResolved *prometheus.CounterVec
}

// MustNewMetrics registers the collectors on reg and panics on a conflicting
// registration. Pass a fresh registry in tests.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "content_studio",
			Subsystem: "turns",
			Name:      "total",
			Help:      "Turns by terminal outcome.",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "content_studio",
			Subsystem: "turns",
			Name:      "duration_seconds",
			Help:      "Wall time of a turn from lock acquisition to terminal event.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"signal"}),
		capabilityCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "content_studio",
			Subsystem: "capability",
			Name:      "calls_total",
			Help:      "Capability invocations by result.",
		}, []string{"capability", "result"}),
		capabilityRetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "content_studio",
			Subsystem: "capability",
			Name:      "retries_total",
			Help:      "Retries after a transient capability failure.",
		}, []string{"capability"}),
		activeTurns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "content_studio",
			Subsystem: "turns",
			Name:      "active",
			Help:      "Turns currently holding a session lock.",
		}),
		sessionsResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "content_studio",
			Subsystem: "sessions",
			Name:      "resolved_total",
			Help:      "Session resolutions, split by whether a new session was created.",
		}, []string{"new"}),
	}
	reg.MustRegister(m.turns, m.turnDuration, m.capabilityCalls, m.capabilityRetry, m.activeTurns, m.sessionsResolved)
	return m
}

func (m *Metrics) ObserveTurn(signal, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(outcome).Inc()
	m.turnDuration.WithLabelValues(signal).Observe(d.Seconds())
}

func (m *Metrics) IncCapabilityCall(capability, result string) {
	if m == nil {
		return
	}
	m.capabilityCalls.WithLabelValues(capability, result).Inc()
}

func (m *Metrics) IncCapabilityRetry(capability string) {
	if m == nil {
		return
	}
	m.capabilityRetry.WithLabelValues(capability).Inc()
}

func (m *Metrics) TurnStarted() {
	if m == nil {
		return
	}
	m.activeTurns.Inc()
}

func (m *Metrics) TurnFinished() {
	if m == nil {
		return
	}
	m.activeTurns.Dec()
}

func (m *Metrics) SessionResolved(isNew bool) {
	if m == nil {
		return
	}
	label := "false"
	if isNew {
		label = "true"
	}
	m.sessionsResolved.WithLabelValues(label).Inc()
}
