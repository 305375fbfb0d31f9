// Package metrics exposes the trend engine's Prometheus collectors. Metrics
// recording never blocks or returns an error to its caller.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors registered against a Prometheus registry.
type Metrics struct {
	GateWaitSeconds  prometheus.Histogram
	RetryAttempts    prometheus.Histogram
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	StaleServed      prometheus.Counter
	ScoringSeconds   prometheus.Histogram
	UpstreamFailures prometheus.Counter
	QueriesTotal     *prometheus.CounterVec
}

// New registers and returns the collectors against reg. Pass nil to use the
// global default registry (the production path, exercised once per
// process); tests should pass a fresh prometheus.NewRegistry() so repeated
// construction doesn't collide with an earlier registration.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		GateWaitSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trendpulse",
			Subsystem: "gate",
			Name:      "wait_seconds",
			Help:      "Time spent waiting to acquire the upstream concurrency gate.",
			Buckets:   prometheus.DefBuckets,
		}),
		RetryAttempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trendpulse",
			Subsystem: "retry",
			Name:      "attempts",
			Help:      "Number of attempts the retry envelope made per upstream call.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trendpulse",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Fresh-cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trendpulse",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Fresh-cache misses.",
		}),
		StaleServed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trendpulse",
			Subsystem: "cache",
			Name:      "stale_served_total",
			Help:      "Responses served from the stale cache after upstream failure.",
		}),
		ScoringSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trendpulse",
			Subsystem: "scoring",
			Name:      "duration_seconds",
			Help:      "Time spent computing a trend score from a series.",
			Buckets:   prometheus.DefBuckets,
		}),
		UpstreamFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "trendpulse",
			Subsystem: "upstream",
			Name:      "failures_total",
			Help:      "Upstream calls that exhausted all retry attempts.",
		}),
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trendpulse",
			Subsystem: "engine",
			Name:      "queries_total",
			Help:      "Trend queries by terminal outcome.",
		}, []string{"outcome"}),
	}
}

// ObserveGateWait records time spent waiting on the concurrency gate.
func (m *Metrics) ObserveGateWait(d time.Duration) {
	if m == nil {
		return
	}
	m.GateWaitSeconds.Observe(d.Seconds())
}

// ObserveScoring records time spent in the scoring engine.
func (m *Metrics) ObserveScoring(d time.Duration) {
	if m == nil {
		return
	}
	m.ScoringSeconds.Observe(d.Seconds())
}

// ObserveRetryAttempts records how many attempts an upstream call took.
func (m *Metrics) ObserveRetryAttempts(attempts int) {
	if m == nil {
		return
	}
	m.RetryAttempts.Observe(float64(attempts))
}

// RecordOutcome increments the terminal-outcome counter ("fresh_hit",
// "done", "stale_fallback", "error").
func (m *Metrics) RecordOutcome(outcome string) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(outcome).Inc()
}
