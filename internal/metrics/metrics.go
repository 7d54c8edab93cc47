// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes Prometheus instrumentation for provider fetch
// attempts, cache lookups and aggregation latency. A nil *Metrics is valid
// and records nothing, so library callers need not wire a registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Attempt outcomes.
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient"
	OutcomeTransient    = "transient"
	OutcomePermanent    = "permanent"
	OutcomeBlocked      = "blocked"
	OutcomeCooldown     = "cooldown"
)

// Metrics holds the collectors and the registry they are registered with.
type Metrics struct {
	registry *prometheus.Registry

	attemptsTotal     *prometheus.CounterVec
	cacheLookupsTotal *prometheus.CounterVec
	sourcesTotal      *prometheus.CounterVec
	aggregateDuration prometheus.Histogram
}

// New builds a Metrics instance on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	attemptsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankcompare",
			Subsystem: "provider",
			Name:      "fetch_attempts_total",
			Help:      "Provider fetch attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)
	cacheLookupsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankcompare",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by source and result.",
		},
		[]string{"source", "result"},
	)
	sourcesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rankcompare",
			Subsystem: "aggregate",
			Name:      "sources_total",
			Help:      "Per-source aggregation outcomes.",
		},
		[]string{"source", "status"},
	)
	aggregateDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "rankcompare",
			Subsystem: "aggregate",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of one aggregation.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	registry.MustRegister(attemptsTotal, cacheLookupsTotal, sourcesTotal, aggregateDuration)

	return &Metrics{
		registry:          registry,
		attemptsTotal:     attemptsTotal,
		cacheLookupsTotal: cacheLookupsTotal,
		sourcesTotal:      sourcesTotal,
		aggregateDuration: aggregateDuration,
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveAttempt counts one provider fetch attempt.
func (m *Metrics) ObserveAttempt(source, outcome string) {
	if m == nil {
		return
	}
	m.attemptsTotal.WithLabelValues(source, outcome).Inc()
}

// ObserveCacheLookup counts one cache lookup as a hit or a miss.
func (m *Metrics) ObserveCacheLookup(source string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookupsTotal.WithLabelValues(source, result).Inc()
}

// ObserveSource counts the final outcome of one source in one aggregation
// ("ok", "failed", "skipped").
func (m *Metrics) ObserveSource(source, status string) {
	if m == nil {
		return
	}
	m.sourcesTotal.WithLabelValues(source, status).Inc()
}

// ObserveAggregate records the duration of one aggregation.
func (m *Metrics) ObserveAggregate(d time.Duration) {
	if m == nil || d < 0 {
		return
	}
	m.aggregateDuration.Observe(d.Seconds())
}
