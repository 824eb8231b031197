/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"
)

// Product is a product of the upstream catalog.
type Product struct {
	ID         string                 `json:"id" yaml:"id"`
	OwnerID    string                 `json:"owner_id,omitempty" yaml:"ownerID,omitempty"`
	Title      string                 `json:"title,omitempty" yaml:"title,omitempty"`
	SKU        string                 `json:"sku,omitempty" yaml:"sku,omitempty"`
	Status     string                 `json:"status,omitempty" yaml:"status,omitempty"`
	CategoryID string                 `json:"category_id,omitempty" yaml:"categoryID,omitempty"`
	Price      decimal.Decimal        `json:"price" yaml:"price"`
	Stock      int                    `json:"stock" yaml:"stock"`
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// UnmarshalJSON accepts ids given either as JSON strings or numbers.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var aux struct {
		plain
		ID         flexibleID `json:"id"`
		OwnerID    flexibleID `json:"owner_id"`
		CategoryID flexibleID `json:"category_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Product(aux.plain)
	p.ID, p.OwnerID, p.CategoryID = string(aux.ID), string(aux.OwnerID), string(aux.CategoryID)
	return nil
}

type flexibleID string

func (id *flexibleID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = flexibleID(n.String())
	return nil
}

// Filters narrows the product list. Empty fields are not sent upstream.
type Filters struct {
	Search     string
	Status     string
	CategoryID string
	SKU        string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
}

func (f Filters) setQuery(q url.Values) {
	setIfNotEmpty := func(key, value string) {
		if value != "" {
			q.Set(key, value)
		}
	}
	setIfNotEmpty("search", f.Search)
	setIfNotEmpty("status", f.Status)
	setIfNotEmpty("category_id", f.CategoryID)
	setIfNotEmpty("sku", f.SKU)
	if f.MinPrice != nil {
		q.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		q.Set("max_price", f.MaxPrice.String())
	}
}

// ListResult is a page of products.
type ListResult struct {
	Items      []Product `json:"items"`
	Total      int       `json:"total"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
}

// ProductUpdate is a patch for a single product.
type ProductUpdate struct {
	ID    string                 `json:"id"`
	Patch map[string]interface{} `json:"patch"`
}

// BatchFailure describes an item the upstream refused to update within a successful batch call.
type BatchFailure struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

// BatchResult is the outcome of a batch update.
type BatchResult struct {
	Updated      []Product      `json:"updated"`
	Failed       []BatchFailure `json:"failed"`
	SuccessCount int            `json:"success_count"`
	FailedCount  int            `json:"failed_count"`
}

// CacheStats describes the product details cache.
type CacheStats struct {
	Size int      `json:"size" yaml:"size"`
	Keys []string `json:"keys" yaml:"keys"`
}

// RateLimitStatus describes the outbound request budget.
type RateLimitStatus struct {
	RequestsInWindow int   `json:"requests_in_window" yaml:"requestsInWindow"`
	MaxRequests      int   `json:"max_requests" yaml:"maxRequests"`
	QueueLength      int   `json:"queue_length" yaml:"queueLength"`
	WindowMs         int64 `json:"window_ms" yaml:"windowMs"`
}

// unwrapData returns the value of the "data" key if body is an object with it, or body itself.
func unwrapData(body json.RawMessage) json.RawMessage {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return body
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return body
	}
	if data, ok := envelope["data"]; ok {
		return data
	}
	return body
}

func decodeProduct(body json.RawMessage) (Product, error) {
	var p Product
	data := unwrapData(body)
	if len(data) == 0 {
		return p, fmt.Errorf("empty product body")
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decode product: %w", err)
	}
	return p, nil
}

// decodeProductList accepts a bare array, {"data": [...]} with total in "meta.total" or "total",
// and {"data": {"items": [...], "total": N}}.
func decodeProductList(body json.RawMessage) (items []Product, total int, err error) {
	type listObject struct {
		Data  json.RawMessage `json:"data"`
		Items json.RawMessage `json:"items"`
		Total *json.Number    `json:"total"`
		Meta  struct {
			Total *json.Number `json:"total"`
		} `json:"meta"`
	}

	body = bytes.TrimSpace(body)
	total = -1
	itemsRaw := body
	if len(body) > 0 && body[0] == '{' {
		var obj listObject
		if err = json.Unmarshal(body, &obj); err != nil {
			return nil, 0, fmt.Errorf("decode product list: %w", err)
		}
		itemsRaw = obj.Items
		if len(bytes.TrimSpace(obj.Data)) > 0 {
			itemsRaw = obj.Data
			if trimmed := bytes.TrimSpace(obj.Data); trimmed[0] == '{' {
				var nested listObject
				if err = json.Unmarshal(obj.Data, &nested); err != nil {
					return nil, 0, fmt.Errorf("decode product list: %w", err)
				}
				itemsRaw = nested.Items
				if nested.Total != nil {
					obj.Total = nested.Total
				}
			}
		}
		if t, ok := parseTotal(obj.Meta.Total); ok {
			total = t
		} else if t, ok = parseTotal(obj.Total); ok {
			total = t
		}
	}
	if len(bytes.TrimSpace(itemsRaw)) > 0 {
		if err = json.Unmarshal(itemsRaw, &items); err != nil {
			return nil, 0, fmt.Errorf("decode product list: %w", err)
		}
	}
	if items == nil {
		items = []Product{}
	}
	if total < 0 {
		total = len(items)
	}
	return items, total, nil
}

func parseTotal(n *json.Number) (int, bool) {
	if n == nil {
		return 0, false
	}
	v, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, false
	}
	return v, true
}

// decodeBatchResult accepts {"data": {"updated": [...], "failed": [...]}}, a bare array of updated products
// and an empty body (every update is considered applied).
func decodeBatchResult(body json.RawMessage, updates []ProductUpdate) (BatchResult, error) {
	res := BatchResult{Updated: []Product{}, Failed: []BatchFailure{}}
	data := bytes.TrimSpace(unwrapData(body))
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		res.SuccessCount = len(updates)
		return res, nil
	case data[0] == '[':
		if err := json.Unmarshal(data, &res.Updated); err != nil {
			return res, fmt.Errorf("decode batch result: %w", err)
		}
	default:
		var obj struct {
			Updated []Product      `json:"updated"`
			Failed  []BatchFailure `json:"failed"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return res, fmt.Errorf("decode batch result: %w", err)
		}
		if obj.Updated != nil {
			res.Updated = obj.Updated
		}
		if obj.Failed != nil {
			res.Failed = obj.Failed
		}
	}
	res.SuccessCount = len(res.Updated)
	res.FailedCount = len(res.Failed)
	return res, nil
}
