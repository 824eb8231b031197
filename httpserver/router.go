/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mjsoltani/peyvandyar/httpserver/middleware"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/restapi"
)

// systemEndpoints are excluded from metrics and inbound rate limiting.
var systemEndpoints = []string{"/metrics", "/healthz"}

// APIVersion is a type alias for API version.
type APIVersion = int

// APIRoute registers the routes of a single API version.
type APIRoute = func(router chi.Router)

// RouterOpts represents options for creating chi.Router.
type RouterOpts struct {
	ServiceNameInURL string
	APIRoutes        map[APIVersion]APIRoute
	ErrorDomain      string
	HealthCheck      HealthCheck
	MetricsHandler   http.Handler
}

// NewRouter creates a new chi.Router with /metrics, /healthz and the API routes mounted at /api/<service>/v<N>.
func NewRouter(logger log.FieldLogger, opts RouterOpts) chi.Router {
	router := chi.NewRouter()
	configureRouter(router, logger, opts)
	return router
}

func configureRouter(router chi.Router, logger log.FieldLogger, opts RouterOpts) {
	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, "/metrics", metricsHandler)
	router.Method(http.MethodGet, "/healthz", NewHealthCheckHandler(opts.HealthCheck))

	router.Route(fmt.Sprintf("/api/%s", opts.ServiceNameInURL), func(router chi.Router) {
		for ver, r := range opts.APIRoutes {
			router.Route(fmt.Sprintf("/v%d", ver), r)
		}
	})

	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		apiErr := restapi.NewError(opts.ErrorDomain, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound)
		restapi.RespondError(rw, http.StatusNotFound, apiErr, loggerFromRequest(r, logger))
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		apiErr := restapi.NewError(opts.ErrorDomain, restapi.ErrCodeMethodNotAllowed, restapi.ErrMessageMethodNotAllowed)
		restapi.RespondError(rw, http.StatusMethodNotAllowed, apiErr, loggerFromRequest(r, logger))
	})
}

func loggerFromRequest(r *http.Request, fallback log.FieldLogger) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
		return logger
	}
	return fallback
}

func applyDefaultMiddlewares(
	router chi.Router, cfg *Config, logger log.FieldLogger, errDomain string, metrics *middleware.HTTPRequestMetricsCollector,
) error {
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(rw, r.WithContext(middleware.NewContextWithRequestStartTime(r.Context(), time.Now())))
		})
	})
	router.Use(middleware.RequestID())
	router.Use(middleware.LoggingWithOpts(logger, middleware.LoggingOpts{
		RequestStart:           cfg.Log.RequestStart,
		ExcludedEndpoints:      systemEndpoints,
		AddRequestInfoToLogger: cfg.Log.AddRequestInfoToLogger,
		SlowRequestThreshold:   cfg.Log.SlowRequestThreshold,
	}))
	router.Use(middleware.Recovery(errDomain))
	router.Use(middleware.HTTPRequestMetricsWithOpts(metrics, middleware.GetChiRoutePattern,
		middleware.HTTPRequestMetricsOpts{ExcludedEndpoints: systemEndpoints}))

	if cfg.RateLimit.Enabled {
		rateLimitMw, err := middleware.RateLimitWithOpts(
			middleware.Rate{Count: cfg.RateLimit.Count, Duration: cfg.RateLimit.Period}, errDomain,
			middleware.RateLimitOpts{
				Alg:      cfg.RateLimit.Alg,
				MaxBurst: cfg.RateLimit.Burst,
				GetKey:   middleware.GetRateLimitKeyByClientIP,
				MaxKeys:  cfg.RateLimit.MaxKeys,
				DryRun:   cfg.RateLimit.DryRun,
			})
		if err != nil {
			return fmt.Errorf("create rate limit middleware: %w", err)
		}
		router.Use(skipSystemEndpoints(rateLimitMw))
	}

	if cfg.Limits.MaxBodySizeBytes > 0 {
		router.Use(middleware.RequestBodyLimit(uint64(cfg.Limits.MaxBodySizeBytes), errDomain))
	}
	return nil
}

func skipSystemEndpoints(mw func(next http.Handler) http.Handler) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			for _, endpoint := range systemEndpoints {
				if r.URL.Path == endpoint {
					next.ServeHTTP(rw, r)
					return
				}
			}
			limited.ServeHTTP(rw, r)
		})
	}
}
