/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector collects statistics about cache usage.
type MetricsCollector interface {
	// SetAmount sets the total number of entries in the cache.
	SetAmount(int)

	// IncHits increments the number of successful lookups.
	IncHits()

	// IncMisses increments the number of failed lookups (expired entries included).
	IncMisses()

	// IncExpirations increments the number of entries dropped on lookup because their TTL elapsed.
	IncExpirations()

	// AddEvictions increments the number of entries evicted to respect the size bound.
	AddEvictions(int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is prepended to all metric names.
	Namespace string

	// ConstLabels are applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics is a MetricsCollector backed by Prometheus.
type PrometheusMetrics struct {
	EntriesAmount    prometheus.Gauge
	HitsTotal        prometheus.Counter
	MissesTotal      prometheus.Counter
	ExpirationsTotal prometheus.Counter
	EvictionsTotal   prometheus.Counter
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: opts.Namespace, Name: name, Help: help, ConstLabels: opts.ConstLabels,
		})
	}
	return &PrometheusMetrics{
		EntriesAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_entries_amount",
			Help:        "Total number of entries in the cache.",
			ConstLabels: opts.ConstLabels,
		}),
		HitsTotal:        counter("cache_hits_total", "Number of successfully found keys in the cache."),
		MissesTotal:      counter("cache_misses_total", "Number of not found or expired keys in the cache."),
		ExpirationsTotal: counter("cache_expirations_total", "Number of entries removed on lookup after their TTL elapsed."),
		EvictionsTotal:   counter("cache_evictions_total", "Number of entries evicted by the size bound."),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(pm.EntriesAmount, pm.HitsTotal, pm.MissesTotal, pm.ExpirationsTotal, pm.EvictionsTotal)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister(registerer prometheus.Registerer) {
	registerer.Unregister(pm.EntriesAmount)
	registerer.Unregister(pm.HitsTotal)
	registerer.Unregister(pm.MissesTotal)
	registerer.Unregister(pm.ExpirationsTotal)
	registerer.Unregister(pm.EvictionsTotal)
}

// SetAmount sets the total number of entries in the cache.
func (pm *PrometheusMetrics) SetAmount(amount int) { pm.EntriesAmount.Set(float64(amount)) }

// IncHits increments the number of successful lookups.
func (pm *PrometheusMetrics) IncHits() { pm.HitsTotal.Inc() }

// IncMisses increments the number of failed lookups.
func (pm *PrometheusMetrics) IncMisses() { pm.MissesTotal.Inc() }

// IncExpirations increments the number of expired entries.
func (pm *PrometheusMetrics) IncExpirations() { pm.ExpirationsTotal.Inc() }

// AddEvictions increments the number of evicted entries.
func (pm *PrometheusMetrics) AddEvictions(n int) { pm.EvictionsTotal.Add(float64(n)) }

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)    {}
func (disabledMetrics) IncHits()         {}
func (disabledMetrics) IncMisses()       {}
func (disabledMetrics) IncExpirations()  {}
func (disabledMetrics) AddEvictions(int) {}
