/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/log/logtest"
)

type mockLoggingNextHandler struct {
	called                   int
	lastContextLogger        log.FieldLogger
	lastContextLoggingParams *LoggingParams
	respStatusCode           int
	timeSlot                 time.Duration
}

func (h *mockLoggingNextHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	h.called++
	h.lastContextLogger = GetLoggerFromContext(r.Context())
	h.lastContextLoggingParams = GetLoggingParamsFromContext(r.Context())
	if h.timeSlot != 0 {
		h.lastContextLoggingParams.AddTimeSlotDurationInMs("external_request_get_product_ms", h.timeSlot)
	}
	rw.WriteHeader(h.respStatusCode)
	_, _ = rw.Write([]byte(http.StatusText(h.respStatusCode)))
}

func TestLoggingHandler_ServeHTTP(t *testing.T) {
	const (
		extReqID    = "external-request-id"
		intReqID    = "internal-request-id"
		userAgent   = "http-client"
		urlPath     = "/products/42"
		bodyContent = `{"price":"10.5"}`
	)

	newRequest := func() *http.Request {
		req := httptest.NewRequest(http.MethodPatch, urlPath, bytes.NewReader([]byte(bodyContent)))
		req = req.WithContext(NewContextWithRequestID(req.Context(), extReqID))
		req = req.WithContext(NewContextWithInternalRequestID(req.Context(), intReqID))
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
		return req
	}

	requireCommonFields := func(t *testing.T, logEntry logtest.RecordedEntry) {
		t.Helper()
		requireLogFieldString(t, logEntry, "request_id", extReqID)
		requireLogFieldString(t, logEntry, "int_request_id", intReqID)
		requireLogFieldString(t, logEntry, "method", http.MethodPatch)
		requireLogFieldString(t, logEntry, "uri", urlPath)
		requireLogFieldInt(t, logEntry, "content_length", len(bodyContent))
		requireLogFieldString(t, logEntry, "user_agent", userAgent)
		requireLogFieldString(t, logEntry, "origin_addr", "10.0.0.1")
	}

	tests := []struct {
		name       string
		opts       LoggingOpts
		statusCode int
	}{
		{name: "without request start", opts: LoggingOpts{}, statusCode: http.StatusBadGateway},
		{name: "with request start", opts: LoggingOpts{RequestStart: true}, statusCode: http.StatusBadRequest},
		{name: "success", opts: LoggingOpts{}, statusCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := logtest.NewRecorder()
			handler := &mockLoggingNextHandler{respStatusCode: tt.statusCode}
			resp := httptest.NewRecorder()
			LoggingWithOpts(logger, tt.opts)(handler).ServeHTTP(resp, newRequest())
			require.Equal(t, 1, handler.called)
			require.NotNil(t, handler.lastContextLogger)
			require.NotNil(t, handler.lastContextLoggingParams)

			wantLoggedLines := 1
			if tt.opts.RequestStart {
				wantLoggedLines++
			}
			require.Len(t, logger.Entries(), wantLoggedLines)

			if tt.opts.RequestStart {
				logEntry := logger.Entries()[0]
				require.Equal(t, "request started", logEntry.Text)
				requireCommonFields(t, logEntry)
			}

			logEntry := logger.Entries()[wantLoggedLines-1]
			require.True(t, strings.HasPrefix(logEntry.Text, "response completed"))
			require.Equal(t, log.LevelInfo, logEntry.Level)
			requireCommonFields(t, logEntry)
			requireLogFieldInt(t, logEntry, "status", tt.statusCode)
			requireLogFieldInt(t, logEntry, "bytes_sent", len(http.StatusText(tt.statusCode)))
		})
	}
}

func TestLoggingHandler_ServeHTTP_ExcludedEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		urlPath    string
		statusCode int
		logsCount  int
	}{
		{name: "successful excluded endpoint", urlPath: "/healthz", statusCode: http.StatusOK, logsCount: 0},
		{name: "successful excluded endpoint with query", urlPath: "/healthz?verbose=1", statusCode: http.StatusOK, logsCount: 0},
		{name: "failed excluded endpoint", urlPath: "/healthz", statusCode: http.StatusServiceUnavailable, logsCount: 1},
		{name: "other endpoint", urlPath: "/products", statusCode: http.StatusOK, logsCount: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.urlPath, nil)
			logger := logtest.NewRecorder()
			next := &mockLoggingNextHandler{respStatusCode: tt.statusCode}
			h := LoggingWithOpts(logger, LoggingOpts{RequestStart: true, ExcludedEndpoints: []string{"/healthz"}})(next)
			h.ServeHTTP(httptest.NewRecorder(), req)
			require.Equal(t, 1, next.called)
			require.Len(t, logger.Entries(), tt.logsCount)
		})
	}
}

func TestLoggingHandler_ServeHTTP_TimeSlots(t *testing.T) {
	for _, slow := range []bool{true, false} {
		threshold := time.Hour
		if slow {
			threshold = time.Nanosecond
		}
		logger := logtest.NewRecorder()
		next := &mockLoggingNextHandler{respStatusCode: http.StatusOK, timeSlot: 150 * time.Millisecond}
		h := LoggingWithOpts(logger, LoggingOpts{SlowRequestThreshold: threshold})(next)
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/1", nil))

		require.Len(t, logger.Entries(), 1)
		_, found := logger.Entries()[0].FindField("time_slots")
		require.Equal(t, slow, found)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.1:5555"
	require.Equal(t, "192.168.1.1", GetClientIP(req))

	req.Header.Set("X-Real-IP", "10.1.1.1")
	require.Equal(t, "10.1.1.1", GetClientIP(req))

	req.Header.Set("X-Forwarded-For", "10.2.2.2, 10.3.3.3")
	require.Equal(t, "10.2.2.2", GetClientIP(req))
}

func requireLogFieldString(t *testing.T, logEntry logtest.RecordedEntry, key, want string) {
	t.Helper()
	logField, found := logEntry.FindField(key)
	require.True(t, found, "field %q is not found", key)
	require.Equal(t, want, string(logField.Bytes))
}

func requireLogFieldInt(t *testing.T, logEntry logtest.RecordedEntry, key string, want int) {
	t.Helper()
	logField, found := logEntry.FindField(key)
	require.True(t, found, "field %q is not found", key)
	require.Equal(t, want, int(logField.Int))
}
