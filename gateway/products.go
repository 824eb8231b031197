/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package gateway

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mjsoltani/peyvandyar/log"
	"github.com/mjsoltani/peyvandyar/retry"
)

// Default pagination.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// ListProducts returns a page of the owner's products. Only non-empty filters are sent upstream.
// Lists are neither cached nor retried.
func (g *Gateway) ListProducts(ctx context.Context, ownerID, page, pageSize int, filters Filters) (ListResult, error) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	query := url.Values{}
	if ownerID > 0 {
		query.Set("owner_id", strconv.Itoa(ownerID))
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(pageSize))
	filters.setQuery(query)

	body, err := g.call(ctx, RequestTypeListProducts, http.MethodGet, "/products", query, nil, nil, nil)
	if err != nil {
		return ListResult{}, err
	}
	items, total, err := decodeProductList(body)
	if err != nil {
		return ListResult{}, newDecodeError(err)
	}
	return ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// GetProductDetails returns a product. With useCache the cache is checked first and a fetched product is cached,
// unless the product was invalidated while it was being fetched. Reads are not retried.
func (g *Gateway) GetProductDetails(ctx context.Context, id string, useCache bool) (Product, error) {
	if id == "" {
		return Product{}, newInvalidArgumentError("product id is required")
	}
	if !useCache {
		return g.fetchProduct(ctx, id)
	}
	if p, ok := g.cache.get(id); ok {
		return p, nil
	}

	fill := g.cache.beginFill(id)
	p, err := g.fetchProduct(ctx, id)
	if err != nil {
		g.cache.endFill(fill, nil)
		return Product{}, err
	}
	g.cache.endFill(fill, &p)
	return p, nil
}

func (g *Gateway) fetchProduct(ctx context.Context, id string) (Product, error) {
	body, err := g.call(ctx, RequestTypeGetProduct, http.MethodGet, productPath(id), nil, nil, nil, nil)
	if err != nil {
		return Product{}, err
	}
	p, err := decodeProduct(body)
	if err != nil {
		return Product{}, newDecodeError(err)
	}
	return p, nil
}

// UpdateProduct applies patch to the product, retrying transport and 5xx failures up to maxAttempts attempts
// in total (Config.Retry.MaxAttempts if maxAttempts is not positive). The cache entry of the product
// is invalidated as soon as the upstream accepts the write, even if the caller has stopped waiting.
func (g *Gateway) UpdateProduct(ctx context.Context, id string, patch map[string]interface{}, maxAttempts int) (Product, error) {
	if id == "" {
		return Product{}, newInvalidArgumentError("product id is required")
	}
	if patch == nil {
		patch = map[string]interface{}{}
	}

	invalidate := func() { g.cache.invalidate(id) }
	var product Product
	err := g.runWithRetry(ctx, RequestTypeUpdateProduct, maxAttempts, func(ctx context.Context) error {
		body, err := g.call(ctx, RequestTypeUpdateProduct, http.MethodPatch, productPath(id), nil, nil, patch, invalidate)
		if err != nil {
			return err
		}
		if len(unwrapData(body)) == 0 {
			product = Product{ID: id}
			return nil
		}
		if product, err = decodeProduct(body); err != nil {
			return newDecodeError(err)
		}
		return nil
	})
	if err != nil {
		return Product{}, err
	}
	return product, nil
}

// BatchUpdateProducts sends all updates in one upstream call. The batch is retried as a whole,
// every attempt carries the same Idempotency-Key. Cache entries of all products in the batch are invalidated
// once the upstream accepts it.
func (g *Gateway) BatchUpdateProducts(ctx context.Context, updates []ProductUpdate, maxAttempts int) (BatchResult, error) {
	if len(updates) == 0 {
		return BatchResult{Updated: []Product{}, Failed: []BatchFailure{}}, nil
	}
	payload := struct {
		Updates []ProductUpdate `json:"updates"`
	}{Updates: updates}
	header := http.Header{}
	header.Set(IdempotencyKeyHeader, uuid.NewString())

	invalidate := func() {
		for _, u := range updates {
			g.cache.invalidate(u.ID)
		}
	}
	var res BatchResult
	err := g.runWithRetry(ctx, RequestTypeBatchUpdateProducts, maxAttempts, func(ctx context.Context) error {
		body, err := g.call(
			ctx, RequestTypeBatchUpdateProducts, http.MethodPost, "/products/batch", nil, header, payload, invalidate)
		if err != nil {
			return err
		}
		if res, err = decodeBatchResult(body, updates); err != nil {
			return newDecodeError(err)
		}
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	return res, nil
}

func (g *Gateway) runWithRetry(ctx context.Context, operation string, maxAttempts int, fn func(ctx context.Context) error) error {
	if maxAttempts < 1 {
		maxAttempts = g.cfg.Retry.MaxAttempts
	}
	policy := retry.NewExponentialBackoffPolicy(g.cfg.Retry.BackoffBase, maxAttempts)
	lastAttempt := 0
	return retry.DoWithRetry(ctx, policy, retry.Opts{
		IsRetryable: IsRetryable,
		Clock:       g.clock,
		Notify: func(err error, delay time.Duration) {
			g.metrics.IncRetries(operation)
			g.logger.Warn("product API call failed, retrying",
				log.String("operation", operation),
				log.Int("attempt", lastAttempt),
				log.Int("max_attempts", policy.MaxAttempts()),
				log.Duration("delay", delay),
				log.Error(err),
			)
		},
	}, func(ctx context.Context, attempt int) error {
		lastAttempt = attempt
		return fn(ctx)
	})
}
