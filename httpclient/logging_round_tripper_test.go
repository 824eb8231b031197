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

	"github.com/stretchr/testify/require"

	"github.com/mjsoltani/peyvandyar/httpserver/middleware"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/log/logtest"
)

func TestLoggingRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			rw.WriteHeader(http.StatusNotFound)
			return
		}
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	doRequest := func(t *testing.T, rt http.RoundTripper, ctx context.Context, path string) {
		t.Helper()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+path, nil)
		require.NoError(t, err)
		resp, err := (&http.Client{Transport: rt}).Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
	}

	t.Run("mode all logs successful requests", func(t *testing.T) {
		logger := logtest.NewRecorder()
		rt := NewLoggingRoundTripper(http.DefaultTransport, LoggingRoundTripperOpts{DefaultLogger: logger})
		ctx := NewContextWithRequestType(context.Background(), "list_products")
		doRequest(t, rt, ctx, "/products")

		require.Len(t, logger.Entries(), 1)
		entry := logger.Entries()[0]
		require.Equal(t, log.LevelInfo, entry.Level)
		require.Equal(t, "client http request completed", entry.Text)
		field, ok := entry.FindField("request_type")
		require.True(t, ok)
		require.Equal(t, "list_products", string(field.Bytes))
	})

	t.Run("mode failed skips successful requests", func(t *testing.T) {
		logger := logtest.NewRecorder()
		rt := NewLoggingRoundTripper(http.DefaultTransport, LoggingRoundTripperOpts{DefaultLogger: logger, Mode: LoggingModeFailed})
		doRequest(t, rt, context.Background(), "/products")
		require.Empty(t, logger.Entries())

		doRequest(t, rt, context.Background(), "/missing")
		require.Len(t, logger.Entries(), 1)
		require.Equal(t, log.LevelWarn, logger.Entries()[0].Level)
		require.Equal(t, "client http request completed with status 404", logger.Entries()[0].Text)
	})

	t.Run("mode none", func(t *testing.T) {
		logger := logtest.NewRecorder()
		rt := NewLoggingRoundTripper(http.DefaultTransport, LoggingRoundTripperOpts{DefaultLogger: logger, Mode: LoggingModeNone})
		doRequest(t, rt, context.Background(), "/missing")
		require.Empty(t, logger.Entries())
	})

	t.Run("logger and time slots from context", func(t *testing.T) {
		defaultLogger := logtest.NewRecorder()
		ctxLogger := logtest.NewRecorder()
		lp := &middleware.LoggingParams{}
		ctx := middleware.NewContextWithLogger(context.Background(), ctxLogger)
		ctx = middleware.NewContextWithLoggingParams(ctx, lp)
		ctx = NewContextWithRequestType(ctx, "get_product")

		rt := NewLoggingRoundTripper(http.DefaultTransport, LoggingRoundTripperOpts{DefaultLogger: defaultLogger})
		doRequest(t, rt, ctx, "/products/1")
		require.Empty(t, defaultLogger.Entries())
		require.Len(t, ctxLogger.Entries(), 1)
		_, ok := lp.TimeSlots()["external_request_get_product_ms"]
		require.True(t, ok)
	})
}
