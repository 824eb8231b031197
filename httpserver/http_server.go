/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpserver provides the HTTP server unit exposing the gateway API,
// the health-check and Prometheus metrics endpoints.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mjsoltani/peyvandyar/httpserver/middleware"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/service"
)

// Opts represents options for creating HTTPServer.
type Opts struct {
	// ServiceNameInURL is a prefix for API routes (e.g., "/api/service_name/v1").
	ServiceNameInURL string
	// APIRoutes is a map of API versions to their route configuration functions.
	APIRoutes map[APIVersion]APIRoute
	// ErrorDomain is used for error response formatting.
	ErrorDomain string
	// HealthCheck reports statuses of the service components at /healthz.
	HealthCheck HealthCheck
	// MetricsHandler serves /metrics. promhttp.Handler() is used if nil.
	MetricsHandler http.Handler
	// MetricsNamespace is a namespace of the HTTP request metrics.
	MetricsNamespace string
	// MetricsRegisterer is used by MustRegisterMetrics and UnregisterMetrics. prometheus.DefaultRegisterer if nil.
	MetricsRegisterer prometheus.Registerer
	// Listener is used instead of listening on Config.Address. Useful in tests.
	Listener net.Listener
}

// HTTPServer represents a wrapper around http.Server with additional fields and methods.
// It implements service.Unit and service.MetricsRegisterer interfaces.
type HTTPServer struct {
	HTTPServer      *http.Server
	HTTPRouter      chi.Router
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	listener          net.Listener
	port              atomic.Int32
	httpServerDone    atomic.Pointer[chan struct{}]
	requestMetrics    *middleware.HTTPRequestMetricsCollector
	metricsRegisterer prometheus.Registerer
}

var _ service.Unit = (*HTTPServer)(nil)
var _ service.MetricsRegisterer = (*HTTPServer)(nil)

// New creates a new HTTPServer with request id, logging, recovery, metrics, inbound rate limiting
// and body size limiting middlewares.
func New(cfg *Config, logger log.FieldLogger, opts Opts) (*HTTPServer, error) {
	requestMetrics := middleware.NewHTTPRequestMetricsCollector(opts.MetricsNamespace)
	router := chi.NewRouter()
	if err := applyDefaultMiddlewares(router, cfg, logger, opts.ErrorDomain, requestMetrics); err != nil {
		return nil, err
	}
	configureRouter(router, logger, RouterOpts{
		ServiceNameInURL: opts.ServiceNameInURL,
		APIRoutes:        opts.APIRoutes,
		ErrorDomain:      opts.ErrorDomain,
		HealthCheck:      opts.HealthCheck,
		MetricsHandler:   opts.MetricsHandler,
	})

	registerer := opts.MetricsRegisterer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &HTTPServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			WriteTimeout:      cfg.Timeouts.Write,
			ReadTimeout:       cfg.Timeouts.Read,
			ReadHeaderTimeout: cfg.Timeouts.ReadHeader,
			IdleTimeout:       cfg.Timeouts.Idle,
			Handler:           router,
		},
		HTTPRouter:        router,
		Logger:            logger,
		ShutdownTimeout:   cfg.Timeouts.Shutdown,
		listener:          opts.Listener,
		requestMetrics:    requestMetrics,
		metricsRegisterer: registerer,
	}, nil
}

// Start starts application HTTP server in a blocking way.
// It's supposed that this method will be called in a separate goroutine.
// If a fatal error occurs, it will be sent to the fatalError channel.
func (s *HTTPServer) Start(fatalError chan<- error) {
	done := make(chan struct{})
	defer close(done)
	s.httpServerDone.Store(&done)

	logger := s.Logger.With(
		log.String("address", s.HTTPServer.Addr),
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("shutdown_timeout", s.ShutdownTimeout),
	)
	logger.Info("starting application HTTP server...")

	if s.listener == nil {
		listener, err := net.Listen("tcp", s.HTTPServer.Addr)
		if err != nil {
			logger.Error("application HTTP server error", log.Error(err))
			fatalError <- err
			return
		}
		s.listener = listener
	}

	_, portStr, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		fatalError <- fmt.Errorf("split listener address: %w", err)
		return
	}
	port, err := strconv.ParseInt(portStr, 10, 32)
	if err != nil {
		fatalError <- fmt.Errorf("parse listener port: %w", err)
		return
	}
	s.port.Store(int32(port))

	if err = s.HTTPServer.Serve(s.listener); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("application HTTP server closed")
			return
		}
		logger.Error("application HTTP server error", log.Error(err))
		fatalError <- err
	}
}

// Stop stops application HTTP server (gracefully or not).
// Graceful stop waits up to ShutdownTimeout for the requests in progress.
func (s *HTTPServer) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing application HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("application HTTP server closing error", log.Error(err))
			return err
		}
		s.waitServeDone()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()

	s.Logger.Info("shutting down application HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
	if err := s.HTTPServer.Shutdown(ctx); err != nil {
		s.Logger.Error("application HTTP server shutting down error", log.Error(err))
		return err
	}
	s.Logger.Info("application HTTP server shut down")
	s.waitServeDone()
	return nil
}

func (s *HTTPServer) waitServeDone() {
	if done := s.httpServerDone.Load(); done != nil {
		<-*done
	}
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (s *HTTPServer) MustRegisterMetrics() {
	s.requestMetrics.MustRegister(s.metricsRegisterer)
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (s *HTTPServer) UnregisterMetrics() {
	s.requestMetrics.Unregister(s.metricsRegisterer)
}

// GetPort returns the port the server listens on, 0 until it is started.
func (s *HTTPServer) GetPort() int {
	return int(s.port.Load())
}
