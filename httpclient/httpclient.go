/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds the HTTP client used for upstream calls.
// The client is a chain of round trippers: static headers, bearer auth, request id, user agent, metrics and logging.
package httpclient

import (
	"net/http"

	"github.com/mjsoltani/peyvandyar/log"
)

// Opts provides options for NewWithOpts.
type Opts struct {
	// Delegate is the last RoundTripper in the chain. A clone of http.DefaultTransport is used if nil.
	Delegate http.RoundTripper

	// AuthProvider supplies bearer tokens. ContextAuthProvider is used if nil.
	AuthProvider AuthProvider

	// Logger is used when there is no logger in the request context.
	Logger log.FieldLogger

	// Collector is a metrics collector. Metrics are not collected if nil.
	Collector MetricsCollector
}

// New creates a new HTTP client with default options.
func New(cfg *Config) *http.Client {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new HTTP client wrapping the delegate transport according to cfg and opts.
func NewWithOpts(cfg *Config, opts Opts) *http.Client {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if cfg.Logger.Enabled {
		delegate = NewLoggingRoundTripper(delegate, LoggingRoundTripperOpts{
			DefaultLogger:        opts.Logger,
			Mode:                 cfg.Logger.Mode,
			SlowRequestThreshold: cfg.Logger.SlowRequestThreshold,
		})
	}
	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripper(delegate, opts.Collector)
	}
	if cfg.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, cfg.UserAgent)
	}
	delegate = NewRequestIDRoundTripper(delegate)

	authProvider := opts.AuthProvider
	if authProvider == nil {
		authProvider = ContextAuthProvider{}
	}
	delegate = NewAuthBearerRoundTripper(delegate, authProvider)

	if len(cfg.Headers) != 0 {
		delegate = &headersRoundTripper{delegate: delegate, headers: cfg.Headers}
	}
	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}
}

// headersRoundTripper sets static headers that are not present in the request yet.
type headersRoundTripper struct {
	delegate http.RoundTripper
	headers  map[string]string
}

func (rt *headersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context()) // Per RoundTripper contract.
	for name, value := range rt.headers {
		if req.Header.Get(name) == "" {
			req.Header.Set(name, value)
		}
	}
	return rt.delegate.RoundTrip(req)
}
