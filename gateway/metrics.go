/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package gateway

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector collects gateway statistics.
type MetricsCollector interface {
	SetQueueLength(n int)
	SetRequestsInWindow(n int)
	// IncUpstreamCalls counts executed upstream calls. Status is 0 for transport failures.
	IncUpstreamCalls(requestType string, status int)
	ObserveAdmissionWait(d time.Duration)
	IncRetries(operation string)
}

// PrometheusMetrics is a MetricsCollector backed by Prometheus.
type PrometheusMetrics struct {
	QueueLength      prometheus.Gauge
	RequestsInWindow prometheus.Gauge
	UpstreamCalls    *prometheus.CounterVec
	AdmissionWaits   prometheus.Histogram
	Retries          *prometheus.CounterVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	const subsystem = "gateway"
	return &PrometheusMetrics{
		QueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "queue_length",
			Help: "Number of requests waiting in the gateway queue.",
		}),
		RequestsInWindow: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "requests_in_window",
			Help: "Number of upstream calls counted against the current rate window.",
		}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "upstream_calls_total",
			Help: "Number of executed upstream calls by request type and status class.",
		}, []string{"type", "status_class"}),
		AdmissionWaits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name:    "admission_wait_seconds",
			Help:    "Time the queue head waited for the rate window or the pacer.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "retries_total",
			Help: "Number of retried attempts of mutation operations.",
		}, []string{"operation"}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(pm.QueueLength, pm.RequestsInWindow, pm.UpstreamCalls, pm.AdmissionWaits, pm.Retries)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister(registerer prometheus.Registerer) {
	registerer.Unregister(pm.QueueLength)
	registerer.Unregister(pm.RequestsInWindow)
	registerer.Unregister(pm.UpstreamCalls)
	registerer.Unregister(pm.AdmissionWaits)
	registerer.Unregister(pm.Retries)
}

// SetQueueLength implements MetricsCollector.
func (pm *PrometheusMetrics) SetQueueLength(n int) { pm.QueueLength.Set(float64(n)) }

// SetRequestsInWindow implements MetricsCollector.
func (pm *PrometheusMetrics) SetRequestsInWindow(n int) { pm.RequestsInWindow.Set(float64(n)) }

// IncUpstreamCalls implements MetricsCollector.
func (pm *PrometheusMetrics) IncUpstreamCalls(requestType string, status int) {
	pm.UpstreamCalls.WithLabelValues(requestType, statusClass(status)).Inc()
}

// ObserveAdmissionWait implements MetricsCollector.
func (pm *PrometheusMetrics) ObserveAdmissionWait(d time.Duration) { pm.AdmissionWaits.Observe(d.Seconds()) }

// IncRetries implements MetricsCollector.
func (pm *PrometheusMetrics) IncRetries(operation string) { pm.Retries.WithLabelValues(operation).Inc() }

// statusClass returns "2xx", "4xx" and so on, or "transport" for status 0.
func statusClass(status int) string {
	if status <= 0 {
		return "transport"
	}
	return strconv.Itoa(status/100) + "xx"
}

type disabledMetrics struct{}

func (disabledMetrics) SetQueueLength(int)                 {}
func (disabledMetrics) SetRequestsInWindow(int)            {}
func (disabledMetrics) IncUpstreamCalls(string, int)       {}
func (disabledMetrics) ObserveAdmissionWait(time.Duration) {}
func (disabledMetrics) IncRetries(string)                  {}
