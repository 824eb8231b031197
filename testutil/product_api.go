/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// ProductAPIResponse is a scripted answer of FakeProductAPI.
type ProductAPIResponse struct {
	Status      int
	Body        string
	ContentType string
}

// ProductAPICall is a request received by FakeProductAPI.
type ProductAPICall struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// FakeProductAPI is an in-memory upstream product API served by httptest.Server.
//
// Endpoints:
//
//	GET   /products       paginated list, {"data": [...], "meta": {"total": N}}
//	GET   /products/{id}  {"data": {...}}
//	PATCH /products/{id}  merges the JSON object patch, {"data": {...}}
//	POST  /products/batch {"updates": [{"id": "...", "patch": {...}}]} -> {"data": {"updated": [...], "failed": [...]}}
//
// Responses scripted with Script take precedence over this behavior until they are used up.
type FakeProductAPI struct {
	server *httptest.Server
	token  string

	mu       sync.Mutex
	products map[string]map[string]interface{}
	scripts  map[string][]ProductAPIResponse
	calls    []ProductAPICall
}

// NewFakeProductAPI starts a new FakeProductAPI.
// When token is not empty, every request must carry "Authorization: Bearer <token>" or gets 401.
func NewFakeProductAPI(token string) *FakeProductAPI {
	f := &FakeProductAPI{
		token:    token,
		products: make(map[string]map[string]interface{}),
		scripts:  make(map[string][]ProductAPIResponse),
	}
	router := chi.NewRouter()
	router.Use(f.record, f.checkToken, f.scripted)
	router.Get("/products", f.listProducts)
	router.Post("/products/batch", f.batchUpdate)
	router.Get("/products/{id}", f.getProduct)
	router.Patch("/products/{id}", f.updateProduct)
	f.server = httptest.NewServer(router)
	return f
}

// URL returns the base URL of the fake API.
func (f *FakeProductAPI) URL() string {
	return f.server.URL
}

// Client returns an HTTP client configured for the fake API.
func (f *FakeProductAPI) Client() *http.Client {
	return f.server.Client()
}

// Close shuts the server down.
func (f *FakeProductAPI) Close() {
	f.server.Close()
}

// AddProduct stores a product. The product must have a string "id".
func (f *FakeProductAPI) AddProduct(product map[string]interface{}) {
	id, ok := product["id"].(string)
	if !ok {
		panic("product must have a string id")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[id] = copyObject(product)
}

// Product returns a copy of the stored product.
func (f *FakeProductAPI) Product(id string) (map[string]interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, false
	}
	return copyObject(p), true
}

// Script queues responses for requests with the given method and path (e.g. "PATCH", "/products/1").
// Each response is used once, in order.
func (f *FakeProductAPI) Script(method, path string, responses ...ProductAPIResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := method + " " + path
	f.scripts[key] = append(f.scripts[key], responses...)
}

// Calls returns all received requests.
func (f *FakeProductAPI) Calls() []ProductAPICall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ProductAPICall(nil), f.calls...)
}

// CallCount returns the number of received requests with the given method and path.
func (f *FakeProductAPI) CallCount(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

func (f *FakeProductAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		f.mu.Lock()
		f.calls = append(f.calls, ProductAPICall{
			Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Header: r.Header.Clone(), Body: body,
		})
		f.mu.Unlock()
		next.ServeHTTP(rw, r)
	})
}

func (f *FakeProductAPI) checkToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if f.token != "" && r.Header.Get("Authorization") != "Bearer "+f.token {
			writeFakeJSON(rw, http.StatusUnauthorized, map[string]string{"message": "invalid token"})
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func (f *FakeProductAPI) scripted(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		f.mu.Lock()
		responses := f.scripts[key]
		var resp *ProductAPIResponse
		if len(responses) > 0 {
			resp = &responses[0]
			f.scripts[key] = responses[1:]
		}
		f.mu.Unlock()
		if resp == nil {
			next.ServeHTTP(rw, r)
			return
		}
		contentType := resp.ContentType
		if contentType == "" {
			contentType = contentTypeAppJSON
		}
		rw.Header().Set("Content-Type", contentType)
		rw.WriteHeader(resp.Status)
		_, _ = rw.Write([]byte(resp.Body))
	})
}

func (f *FakeProductAPI) listProducts(rw http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page := atoiOr(query.Get("page"), 1)
	pageSize := atoiOr(query.Get("page_size"), 20)

	f.mu.Lock()
	items := make([]map[string]interface{}, 0, len(f.products))
	for _, p := range f.products {
		if status := query.Get("status"); status != "" && fmt.Sprint(p["status"]) != status {
			continue
		}
		if search := query.Get("search"); search != "" &&
			!strings.Contains(strings.ToLower(fmt.Sprint(p["title"])), strings.ToLower(search)) {
			continue
		}
		items = append(items, copyObject(p))
	}
	f.mu.Unlock()

	sort.Slice(items, func(i, j int) bool { return fmt.Sprint(items[i]["id"]) < fmt.Sprint(items[j]["id"]) })
	total := len(items)
	from := (page - 1) * pageSize
	if from > total {
		from = total
	}
	to := from + pageSize
	if to > total {
		to = total
	}
	writeFakeJSON(rw, http.StatusOK, map[string]interface{}{
		"data": items[from:to],
		"meta": map[string]interface{}{"total": total},
	})
}

func (f *FakeProductAPI) getProduct(rw http.ResponseWriter, r *http.Request) {
	p, ok := f.Product(chi.URLParam(r, "id"))
	if !ok {
		writeFakeJSON(rw, http.StatusNotFound, map[string]string{"message": "product not found"})
		return
	}
	writeFakeJSON(rw, http.StatusOK, map[string]interface{}{"data": p})
}

func (f *FakeProductAPI) updateProduct(rw http.ResponseWriter, r *http.Request) {
	var patch map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeFakeJSON(rw, http.StatusBadRequest, map[string]string{"message": "malformed patch"})
		return
	}
	p, ok := f.applyPatch(chi.URLParam(r, "id"), patch)
	if !ok {
		writeFakeJSON(rw, http.StatusNotFound, map[string]string{"message": "product not found"})
		return
	}
	writeFakeJSON(rw, http.StatusOK, map[string]interface{}{"data": p})
}

func (f *FakeProductAPI) batchUpdate(rw http.ResponseWriter, r *http.Request) {
	var req struct {
		Updates []struct {
			ID    string                 `json:"id"`
			Patch map[string]interface{} `json:"patch"`
		} `json:"updates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFakeJSON(rw, http.StatusBadRequest, map[string]string{"message": "malformed batch"})
		return
	}
	updated := make([]map[string]interface{}, 0, len(req.Updates))
	failed := make([]map[string]string, 0)
	for _, u := range req.Updates {
		p, ok := f.applyPatch(u.ID, u.Patch)
		if !ok {
			failed = append(failed, map[string]string{"id": u.ID, "message": "product not found"})
			continue
		}
		updated = append(updated, p)
	}
	writeFakeJSON(rw, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{"updated": updated, "failed": failed},
	})
}

func (f *FakeProductAPI) applyPatch(id string, patch map[string]interface{}) (map[string]interface{}, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, false
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		p[k] = v
	}
	return copyObject(p), true
}

func writeFakeJSON(rw http.ResponseWriter, status int, v interface{}) {
	rw.Header().Set("Content-Type", contentTypeAppJSON)
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

func copyObject(m map[string]interface{}) map[string]interface{} {
	res := make(map[string]interface{}, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

func atoiOr(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
