/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mjsoltani/peyvandyar/httpserver/middleware"
	"github.com/mjsoltani/peyvandyar/log"
)

// LoggingMode represents a mode of logging.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// IsValid checks if the logger mode is valid.
func (lm LoggingMode) IsValid() bool {
	switch lm {
	case LoggingModeNone, LoggingModeAll, LoggingModeFailed:
		return true
	}
	return false
}

// LoggingRoundTripperOpts represents an options for LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// LoggerProvider returns a context-specific logger.
	// middleware.GetLoggerFromContext is used when it is nil or returns nil.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// DefaultLogger is used when no logger is found in the context.
	DefaultLogger log.FieldLogger

	// Mode of logging: none, all, failed.
	Mode LoggingMode

	// SlowRequestThreshold makes requests faster than it not logged (failed ones are always logged).
	SlowRequestThreshold time.Duration
}

// LoggingRoundTripper implements http.RoundTripper for logging requests.
type LoggingRoundTripper struct {
	Delegate http.RoundTripper
	Opts     LoggingRoundTripperOpts
}

// NewLoggingRoundTripper creates an HTTP transport that log requests.
func NewLoggingRoundTripper(delegate http.RoundTripper, opts LoggingRoundTripperOpts) *LoggingRoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeAll
	}
	return &LoggingRoundTripper{Delegate: delegate, Opts: opts}
}

func (rt *LoggingRoundTripper) getLogger(ctx context.Context) log.FieldLogger {
	if rt.Opts.LoggerProvider != nil {
		if logger := rt.Opts.LoggerProvider(ctx); logger != nil {
			return logger
		}
	}
	if logger := middleware.GetLoggerFromContext(ctx); logger != nil {
		return logger
	}
	return rt.Opts.DefaultLogger
}

// RoundTrip adds logging capabilities to the HTTP transport.
func (rt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Opts.Mode == LoggingModeNone {
		return rt.Delegate.RoundTrip(r)
	}

	ctx := r.Context()
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	elapsed := time.Since(start)

	logger := rt.getLogger(ctx)
	if logger == nil {
		return resp, err
	}
	failed := err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)
	if !failed && (rt.Opts.Mode == LoggingModeFailed || elapsed < rt.Opts.SlowRequestThreshold) {
		return resp, err
	}

	requestType := GetRequestTypeFromContext(ctx)
	fields := []log.Field{
		log.String("method", r.Method),
		log.String("url", r.URL.String()),
		log.String("request_type", requestType),
		log.Int64("duration_ms", elapsed.Milliseconds()),
	}
	if err != nil {
		logger.Error("client http request failed", append(fields, log.Error(err))...)
		return resp, err
	}
	fields = append(fields, log.Int("status", resp.StatusCode))
	if failed {
		logger.Warn(fmt.Sprintf("client http request completed with status %d", resp.StatusCode), fields...)
	} else {
		logger.Info("client http request completed", fields...)
	}

	if lp := middleware.GetLoggingParamsFromContext(ctx); lp != nil && requestType != "" {
		lp.AddTimeSlotDurationInMs(fmt.Sprintf("external_request_%s_ms", requestType), elapsed)
	}
	return resp, err
}
