/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mjsoltani/peyvandyar/gateway"
	"github.com/mjsoltani/peyvandyar/restapi"
)

type batchUpdateRequest struct {
	Updates []gateway.ProductUpdate `json:"updates"`
}

func (h *Handler) listProducts(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	query := r.URL.Query()

	var ownerID, page, pageSize int
	var filters gateway.Filters
	err := firstError(
		parseIntParam(query, "owner_id", &ownerID),
		parseIntParam(query, "page", &page),
		parseIntParam(query, "page_size", &pageSize),
		parseDecimalParam(query, "min_price", &filters.MinPrice),
		parseDecimalParam(query, "max_price", &filters.MaxPrice),
	)
	if err != nil {
		respondInvalidParam(rw, err, logger)
		return
	}
	filters.Search = query.Get("search")
	filters.Status = query.Get("status")
	filters.CategoryID = query.Get("category_id")
	filters.SKU = query.Get("sku")

	res, err := h.gw.ListProducts(r.Context(), ownerID, page, pageSize, filters)
	if err != nil {
		respondGatewayError(rw, err, logger)
		return
	}
	restapi.RespondJSON(rw, res, logger)
}

func (h *Handler) getProductDetails(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	useCache := true
	if v := r.URL.Query().Get("cache"); v != "" {
		var err error
		if useCache, err = strconv.ParseBool(v); err != nil {
			respondInvalidParam(rw, fmt.Errorf("cache: must be a boolean, got %q", v), logger)
			return
		}
	}
	p, err := h.gw.GetProductDetails(r.Context(), chi.URLParam(r, "id"), useCache)
	if err != nil {
		respondGatewayError(rw, err, logger)
		return
	}
	restapi.RespondJSON(rw, p, logger)
}

func (h *Handler) updateProduct(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	var attempts int
	if err := parseIntParam(r.URL.Query(), "attempts", &attempts); err != nil {
		respondInvalidParam(rw, err, logger)
		return
	}
	var patch map[string]interface{}
	if err := restapi.DecodeRequestJSON(r, &patch); err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, ErrorDomain, err, logger)
		return
	}
	p, err := h.gw.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch, attempts)
	if err != nil {
		respondGatewayError(rw, err, logger)
		return
	}
	restapi.RespondJSON(rw, p, logger)
}

func (h *Handler) batchUpdateProducts(rw http.ResponseWriter, r *http.Request) {
	logger := h.loggerFromRequest(r)
	var attempts int
	if err := parseIntParam(r.URL.Query(), "attempts", &attempts); err != nil {
		respondInvalidParam(rw, err, logger)
		return
	}
	var req batchUpdateRequest
	if err := restapi.DecodeRequestJSONStrict(r, &req, true); err != nil {
		restapi.RespondMalformedRequestOrInternalError(rw, ErrorDomain, err, logger)
		return
	}
	for i, u := range req.Updates {
		if u.ID == "" {
			respondInvalidParam(rw, fmt.Errorf("updates[%d].id: cannot be empty", i), logger)
			return
		}
	}
	res, err := h.gw.BatchUpdateProducts(r.Context(), req.Updates, attempts)
	if err != nil {
		respondGatewayError(rw, err, logger)
		return
	}
	restapi.RespondJSON(rw, res, logger)
}

func (h *Handler) cacheStats(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, h.gw.CacheStats(), h.loggerFromRequest(r))
}

func (h *Handler) clearCache(rw http.ResponseWriter, _ *http.Request) {
	h.gw.ClearCache(nil)
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCacheEntry(rw http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.gw.ClearCache(&id)
	rw.WriteHeader(http.StatusNoContent)
}

func (h *Handler) rateLimitStatus(rw http.ResponseWriter, r *http.Request) {
	restapi.RespondJSON(rw, h.gw.RateLimitStatus(), h.loggerFromRequest(r))
}

// parseIntParam leaves dst untouched if the parameter is absent.
func parseIntParam(query url.Values, name string, dst *int) error {
	v := query.Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: must be an integer, got %q", name, v)
	}
	*dst = n
	return nil
}

func parseDecimalParam(query url.Values, name string, dst **decimal.Decimal) error {
	v := query.Get(name)
	if v == "" {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return fmt.Errorf("%s: must be a decimal number, got %q", name, v)
	}
	*dst = &d
	return nil
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
