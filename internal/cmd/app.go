/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mjsoltani/peyvandyar/gateway"
	"github.com/mjsoltani/peyvandyar/httpclient"
	"github.com/mjsoltani/peyvandyar/httpserver"
	"github.com/mjsoltani/peyvandyar/internal/api"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/lrucache"
	"github.com/mjsoltani/peyvandyar/profserver"
	"github.com/mjsoltani/peyvandyar/restapi"
	"github.com/mjsoltani/peyvandyar/service"
)

// MetricsNamespace prefixes all Prometheus metrics of the service.
const MetricsNamespace = "peyvandyar"

// App wires the upstream client, the gateway, the HTTP server and the optional profiling server into one service unit.
type App struct {
	Gateway *gateway.Gateway
	Server  *httpserver.HTTPServer
	// Profiler is nil if profiling is disabled.
	Profiler *profserver.ProfServer

	units             *service.CompositeUnit
	registerer        prometheus.Registerer
	upstreamMetrics   *httpclient.PrometheusMetricsCollector
	gatewayMetrics    *gateway.PrometheusMetrics
	cacheMetrics      *lrucache.PrometheusMetrics
	registeredMetrics bool
}

var _ service.Unit = (*App)(nil)
var _ service.MetricsRegisterer = (*App)(nil)

// NewApp creates a new App. Metrics are registered in registerer (prometheus.DefaultRegisterer if nil).
func NewApp(cfg *AppConfig, logger log.FieldLogger, registerer prometheus.Registerer) (*App, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	upstreamMetrics := httpclient.NewPrometheusMetricsCollector(MetricsNamespace)
	client := httpclient.NewWithOpts(cfg.Upstream, httpclient.Opts{Logger: logger, Collector: upstreamMetrics})

	gatewayMetrics := gateway.NewPrometheusMetrics(MetricsNamespace)
	cacheMetrics := lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{
		Namespace:   MetricsNamespace,
		ConstLabels: prometheus.Labels{"cache": "product_details"},
	})
	gw, err := gateway.New(cfg.Gateway, gateway.Opts{
		Client:       client,
		Logger:       logger.With(log.String("component", "gateway")),
		Metrics:      gatewayMetrics,
		CacheMetrics: cacheMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway: %w", err)
	}

	var metricsHandler http.Handler
	if gatherer, ok := registerer.(prometheus.Gatherer); ok {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	handler := api.NewHandler(gw, logger)
	srv, err := httpserver.New(cfg.Server, logger, httpserver.Opts{
		ServiceNameInURL:  api.ServiceNameInURL,
		APIRoutes:         map[httpserver.APIVersion]httpserver.APIRoute{api.Version: handler.Routes},
		ErrorDomain:       api.ErrorDomain,
		HealthCheck:       gatewayHealthCheck(gw),
		MetricsHandler:    metricsHandler,
		MetricsNamespace:  MetricsNamespace,
		MetricsRegisterer: registerer,
	})
	if err != nil {
		return nil, fmt.Errorf("create HTTP server: %w", err)
	}

	app := &App{
		Gateway:         gw,
		Server:          srv,
		units:           service.NewCompositeUnit(gw, srv),
		registerer:      registerer,
		upstreamMetrics: upstreamMetrics,
		gatewayMetrics:  gatewayMetrics,
		cacheMetrics:    cacheMetrics,
	}
	if cfg.Profiling != nil && cfg.Profiling.Enabled {
		app.Profiler = profserver.New(cfg.Profiling, logger.With(log.String("component", "profiler")))
		app.units.Units = append(app.units.Units, app.Profiler)
	}
	return app, nil
}

func gatewayHealthCheck(gw *gateway.Gateway) httpserver.HealthCheck {
	return func(_ context.Context) (httpserver.HealthCheckResult, error) {
		status := httpserver.HealthCheckStatusOK
		if gw.Stopped() {
			status = httpserver.HealthCheckStatusFail
		}
		return httpserver.HealthCheckResult{"gateway": status}, nil
	}
}

// Start runs the gateway and the HTTP server. It blocks until both are stopped.
func (a *App) Start(fatalError chan<- error) {
	a.units.Start(fatalError)
}

// Stop stops the HTTP server first, so requests in progress can still use the gateway, then the gateway.
func (a *App) Stop(gracefully bool) error {
	srvErr := a.Server.Stop(gracefully)
	gwErr := a.Gateway.Stop(gracefully)
	if a.Profiler != nil {
		if err := a.Profiler.Stop(gracefully); err != nil {
			return fmt.Errorf("stop profiling server: %w", err)
		}
	}
	if srvErr != nil {
		return fmt.Errorf("stop HTTP server: %w", srvErr)
	}
	if gwErr != nil {
		return fmt.Errorf("stop gateway: %w", gwErr)
	}
	return nil
}

// MustRegisterMetrics registers all service metrics.
func (a *App) MustRegisterMetrics() {
	a.units.MustRegisterMetrics()
	a.upstreamMetrics.MustRegister(a.registerer)
	a.gatewayMetrics.MustRegister(a.registerer)
	a.cacheMetrics.MustRegister(a.registerer)
	restapi.MustInitAndRegisterMetrics(MetricsNamespace, a.registerer)
	a.registeredMetrics = true
}

// UnregisterMetrics unregisters all service metrics.
func (a *App) UnregisterMetrics() {
	if !a.registeredMetrics {
		return
	}
	a.units.UnregisterMetrics()
	a.upstreamMetrics.Unregister(a.registerer)
	a.gatewayMetrics.Unregister(a.registerer)
	a.cacheMetrics.Unregister(a.registerer)
	restapi.UnregisterMetrics(a.registerer)
	a.registeredMetrics = false
}
