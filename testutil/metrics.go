/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

// RequireSamplesCountInHistogram asserts the number of observations made by the histogram.
func RequireSamplesCountInHistogram(t require.TestingT, hist prometheus.Histogram, wantSamplesCount int) {
	markHelper(t)
	m := writeMetric(t, hist)
	require.NotNil(t, m.GetHistogram(), "not a histogram")
	require.Equal(t, wantSamplesCount, int(m.GetHistogram().GetSampleCount()))
}

// RequireSamplesCountInCounter asserts the value of the counter.
func RequireSamplesCountInCounter(t require.TestingT, counter prometheus.Counter, wantCount int) {
	markHelper(t)
	m := writeMetric(t, counter)
	require.NotNil(t, m.GetCounter(), "not a counter")
	require.Equal(t, wantCount, int(m.GetCounter().GetValue()))
}

func writeMetric(t require.TestingT, metric prometheus.Metric) *dto.Metric {
	markHelper(t)
	m := &dto.Metric{}
	require.NoError(t, metric.Write(m))
	return m
}
