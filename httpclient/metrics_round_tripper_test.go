/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()

	collector := NewPrometheusMetricsCollector("test")
	registry := prometheus.NewRegistry()
	collector.MustRegister(registry)
	defer collector.Unregister(registry)

	client := &http.Client{Transport: NewMetricsRoundTripper(http.DefaultTransport, collector)}

	ctx := NewContextWithRequestType(context.Background(), "update_product")
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, server.URL, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	req, err = http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	resp, err = client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	require.Equal(t, 2, testutil.CollectAndCount(collector.Durations))
	hist := collector.Durations.WithLabelValues("update_product", http.MethodPatch, "418").(prometheus.Histogram)
	require.Equal(t, 1, testutil.CollectAndCount(hist))
	hist = collector.Durations.WithLabelValues(DefaultRequestType, http.MethodGet, "418").(prometheus.Histogram)
	require.Equal(t, 1, testutil.CollectAndCount(hist))
}

func TestMetricsRoundTripperTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {}))
	serverURL := server.URL
	server.Close()

	collector := NewPrometheusMetricsCollector("test")
	client := &http.Client{Transport: NewMetricsRoundTripper(http.DefaultTransport, collector)}
	req, err := http.NewRequest(http.MethodGet, serverURL, nil)
	require.NoError(t, err)
	_, err = client.Do(req) // nolint:bodyclose
	require.Error(t, err)
	require.Equal(t, 1, testutil.CollectAndCount(collector.Durations))
	hist := collector.Durations.WithLabelValues(DefaultRequestType, http.MethodGet, "0").(prometheus.Histogram)
	require.Equal(t, 1, testutil.CollectAndCount(hist))
}
