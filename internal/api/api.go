/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

// Package api exposes the product gateway over HTTP.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mjsoltani/peyvandyar/gateway"
	"github.com/mjsoltani/peyvandyar/httpclient"
	"github.com/mjsoltani/peyvandyar/httpserver/middleware"
	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/restapi"
)

// ErrorDomain is used in error responses of the API.
const ErrorDomain = "ProductGateway"

// MsgAuthTokenRequired is the message of the 401 response to product requests without a bearer token.
const MsgAuthTokenRequired = "Authorization bearer token is required."

// ServiceNameInURL is the service part of the API path (/api/peyvandyar/v1).
const ServiceNameInURL = "peyvandyar"

// Version is the API version served by Routes.
const Version = 1

// ProductGateway is the set of gateway operations served by the API.
type ProductGateway interface {
	ListProducts(ctx context.Context, ownerID, page, pageSize int, filters gateway.Filters) (gateway.ListResult, error)
	GetProductDetails(ctx context.Context, id string, useCache bool) (gateway.Product, error)
	UpdateProduct(ctx context.Context, id string, patch map[string]interface{}, maxAttempts int) (gateway.Product, error)
	BatchUpdateProducts(ctx context.Context, updates []gateway.ProductUpdate, maxAttempts int) (gateway.BatchResult, error)
	CacheStats() gateway.CacheStats
	ClearCache(id *string)
	RateLimitStatus() gateway.RateLimitStatus
}

var _ ProductGateway = (*gateway.Gateway)(nil)

// Handler serves the product and gateway admin endpoints.
type Handler struct {
	gw     ProductGateway
	logger log.FieldLogger
}

// NewHandler creates a new Handler. A nil logger is replaced by a disabled one.
func NewHandler(gw ProductGateway, logger log.FieldLogger) *Handler {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Handler{gw: gw, logger: logger}
}

// Routes registers the API routes. The result is mounted by httpserver at /api/peyvandyar/v1.
func (h *Handler) Routes(router chi.Router) {
	router.Route("/products", func(router chi.Router) {
		router.Use(requireAuthToken)
		router.Get("/", h.listProducts)
		router.Post("/batch", h.batchUpdateProducts)
		router.Get("/{id}", h.getProductDetails)
		router.Patch("/{id}", h.updateProduct)
	})
	router.Route("/gateway", func(router chi.Router) {
		router.Get("/cache", h.cacheStats)
		router.Delete("/cache", h.clearCache)
		router.Delete("/cache/{id}", h.clearCacheEntry)
		router.Get("/rate-limit", h.rateLimitStatus)
	})
}

// requireAuthToken puts the caller's bearer token into the request context, the gateway sends it upstream.
// Requests without a token are rejected before the product cache is consulted.
func requireAuthToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			apiErr := restapi.NewErrorForStatus(ErrorDomain, http.StatusUnauthorized, MsgAuthTokenRequired)
			restapi.RespondError(rw, http.StatusUnauthorized, apiErr, middleware.GetLoggerFromContext(r.Context()))
			return
		}
		next.ServeHTTP(rw, r.WithContext(httpclient.NewContextWithAuthToken(r.Context(), token)))
	})
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func (h *Handler) loggerFromRequest(r *http.Request) log.FieldLogger {
	if logger := middleware.GetLoggerFromContext(r.Context()); logger != nil {
		return logger
	}
	return h.logger
}
