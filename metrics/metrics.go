// metrics/metrics.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sentinel"

// Metrics groups the engine, cache, verifier and audit collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	DecisionsTotal    *prometheus.CounterVec
	DecisionDuration  prometheus.Histogram
	FailClosedTotal   *prometheus.CounterVec
	TrustCacheEntries prometheus.Gauge
	TrustCacheEvicted prometheus.Counter
	VerifierEvents    *prometheus.CounterVec
	VerifierTicks     *prometheus.CounterVec
	AuditDropped      prometheus.Counter
	TrackedSessions   prometheus.Gauge
}

// New registers all collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Access decisions by outcome",
			},
			[]string{"decision"},
		),
		DecisionDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "decision_duration_seconds",
				Help:      "Time spent evaluating a single access request",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1},
			},
		),
		FailClosedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fail_closed_total",
				Help:      "Decisions forced to DENY by a fault, timeout or missing identifier",
			},
			[]string{"reason"},
		),
		TrustCacheEntries: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "trust_cache",
				Name:      "entries",
				Help:      "Entries currently held by the session trust cache",
			},
		),
		TrustCacheEvicted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "trust_cache",
				Name:      "evictions_total",
				Help:      "Expired trust cache entries removed by sweeps",
			},
		),
		VerifierEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "verifier",
				Name:      "events_total",
				Help:      "Events emitted by continuous verification",
			},
			[]string{"event"},
		),
		VerifierTicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "verifier",
				Name:      "ticks_total",
				Help:      "Completed verifier ticks by kind",
			},
			[]string{"kind"},
		),
		AuditDropped: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "audit",
				Name:      "dropped_total",
				Help:      "Audit records dropped because the queue was full or closed",
			},
		),
		TrackedSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "verifier",
				Name:      "tracked_sessions",
				Help:      "Sessions currently tracked for continuous verification",
			},
		),
	}
}

// NewRegistry returns a registry with the Go and process collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler exposes reg for scraping.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveDecision(decision string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DecisionsTotal.WithLabelValues(decision).Inc()
	m.DecisionDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) FailClosed(reason string) {
	if m == nil {
		return
	}
	m.FailClosedTotal.WithLabelValues(reason).Inc()
}

func (m *Metrics) CacheSize(n int) {
	if m == nil {
		return
	}
	m.TrustCacheEntries.Set(float64(n))
}

func (m *Metrics) CacheEvicted(n int) {
	if m == nil {
		return
	}
	m.TrustCacheEvicted.Add(float64(n))
}

func (m *Metrics) VerifierEvent(event string) {
	if m == nil {
		return
	}
	m.VerifierEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) VerifierTick(kind string) {
	if m == nil {
		return
	}
	m.VerifierTicks.WithLabelValues(kind).Inc()
}

func (m *Metrics) AuditDrop() {
	if m == nil {
		return
	}
	m.AuditDropped.Inc()
}

func (m *Metrics) SessionsTracked(n int) {
	if m == nil {
		return
	}
	m.TrackedSessions.Set(float64(n))
}
