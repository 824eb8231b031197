/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsSubsystem                = "restapi"
	metricsLabelResponseErrorDomain = "domain"
	metricsLabelResponseErrorCode   = "code"
)

var responseErrors atomic.Pointer[prometheus.CounterVec]

// MustInitAndRegisterMetrics initializes and registers restapi metrics. Panic will be raised in case of error.
func MustInitAndRegisterMetrics(namespace string, registerer prometheus.Registerer) {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: metricsSubsystem,
		Name:      "response_errors_total",
		Help:      "The total number of REST API errors that were respond.",
	}, []string{metricsLabelResponseErrorDomain, metricsLabelResponseErrorCode})
	registerer.MustRegister(c)
	responseErrors.Store(c)
}

// UnregisterMetrics unregisters restapi metrics.
func UnregisterMetrics(registerer prometheus.Registerer) {
	if c := responseErrors.Swap(nil); c != nil {
		registerer.Unregister(c)
	}
}
