/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/mjsoltani/peyvandyar/gateway"
	"github.com/mjsoltani/peyvandyar/httpclient"
	"github.com/mjsoltani/peyvandyar/restapi"
	"github.com/mjsoltani/peyvandyar/testutil"
)

const testToken = "secret"

type APITestSuite struct {
	suite.Suite
	upstream *testutil.FakeProductAPI
	gw       *gateway.Gateway
	server   *httptest.Server
}

func TestAPI(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	s.upstream = testutil.NewFakeProductAPI(testToken)
	s.upstream.AddProduct(map[string]interface{}{"id": "1", "title": "Tea", "price": "12.50", "stock": 3, "status": "active"})
	s.upstream.AddProduct(map[string]interface{}{"id": "2", "title": "Coffee", "price": "20", "stock": 0, "status": "draft"})

	cfg := gateway.NewDefaultConfig(s.upstream.URL())
	cfg.RateLimit.MinDelay = 0
	cfg.Retry.BackoffBase = time.Millisecond
	clientCfg := httpclient.NewDefaultConfig()
	clientCfg.Logger.Enabled = false
	client := httpclient.NewWithOpts(clientCfg, httpclient.Opts{Delegate: s.upstream.Client().Transport})

	var err error
	s.gw, err = gateway.New(cfg, gateway.Opts{Client: client})
	s.Require().NoError(err)
	go s.gw.Start(make(chan error, 1))

	router := chi.NewRouter()
	NewHandler(s.gw, nil).Routes(router)
	s.server = httptest.NewServer(router)
}

func (s *APITestSuite) TearDownTest() {
	s.server.Close()
	s.Require().NoError(s.gw.Stop(true))
	s.upstream.Close()
}

func (s *APITestSuite) do(method, path, body, token string) (int, string) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, s.server.URL+path, reqBody)
	s.Require().NoError(err)
	if body != "" {
		req.Header.Set("Content-Type", restapi.ContentTypeAppJSON)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer func() { s.Require().NoError(resp.Body.Close()) }()
	respBody, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	return resp.StatusCode, string(respBody)
}

func (s *APITestSuite) requireError(body string, wantCode string) *restapi.Error {
	var respData restapi.ErrorResponseData
	s.Require().NoError(json.Unmarshal([]byte(body), &respData))
	s.Require().NotNil(respData.Err)
	s.Require().Equal(ErrorDomain, respData.Err.Domain)
	s.Require().Equal(wantCode, respData.Err.Code)
	return respData.Err
}

func (s *APITestSuite) TestListProducts() {
	status, body := s.do(http.MethodGet, "/products?status=active&page=1&page_size=10&min_price=5", "", testToken)
	s.Require().Equal(http.StatusOK, status)

	var res gateway.ListResult
	s.Require().NoError(json.Unmarshal([]byte(body), &res))
	s.Require().Len(res.Items, 1)
	s.Require().Equal("1", res.Items[0].ID)
	s.Require().Equal(1, res.Total)
	s.Require().Equal(10, res.PageSize)
	s.Require().Equal(1, res.TotalPages)

	calls := s.upstream.Calls()
	s.Require().Len(calls, 1)
	s.Require().Equal("active", calls[0].Query.Get("status"))
	s.Require().Equal("5", calls[0].Query.Get("min_price"))
	s.Require().Equal("Bearer "+testToken, calls[0].Header.Get("Authorization"))
}

func (s *APITestSuite) TestListProducts_InvalidParams() {
	for _, query := range []string{"page=first", "page_size=1.5", "owner_id=x", "max_price=cheap"} {
		status, body := s.do(http.MethodGet, "/products?"+query, "", testToken)
		s.Require().Equal(http.StatusBadRequest, status, query)
		s.requireError(body, ErrCodeInvalidParameter)
	}
	s.Require().Empty(s.upstream.Calls())
}

func (s *APITestSuite) TestGetProductDetails() {
	status, body := s.do(http.MethodGet, "/products/1", "", testToken)
	s.Require().Equal(http.StatusOK, status)
	var p gateway.Product
	s.Require().NoError(json.Unmarshal([]byte(body), &p))
	s.Require().Equal("Tea", p.Title)
	s.Require().Equal("12.5", p.Price.String())

	status, _ = s.do(http.MethodGet, "/products/1", "", testToken)
	s.Require().Equal(http.StatusOK, status)
	s.Require().Equal(1, s.upstream.CallCount(http.MethodGet, "/products/1"))

	status, _ = s.do(http.MethodGet, "/products/1?cache=false", "", testToken)
	s.Require().Equal(http.StatusOK, status)
	s.Require().Equal(2, s.upstream.CallCount(http.MethodGet, "/products/1"))

	status, body = s.do(http.MethodGet, "/products/1?cache=maybe", "", testToken)
	s.Require().Equal(http.StatusBadRequest, status)
	s.requireError(body, ErrCodeInvalidParameter)
}

func (s *APITestSuite) TestGetProductDetails_NotFound() {
	status, body := s.do(http.MethodGet, "/products/42", "", testToken)
	s.Require().Equal(http.StatusNotFound, status)
	apiErr := s.requireError(body, "notFound")
	s.Require().Equal(gateway.MsgNotFound, apiErr.Message)
	s.Require().Equal("product not found", apiErr.Context[errContextDetails])
	s.Require().Equal(string(gateway.KindClient), apiErr.Context[errContextKind])
}

func (s *APITestSuite) TestMissingToken() {
	status, _ := s.do(http.MethodGet, "/products/1", "", testToken)
	s.Require().Equal(http.StatusOK, status)

	// Cached products are not served without a token either.
	for _, path := range []string{"/products/1", "/products/2", "/products"} {
		status, body := s.do(http.MethodGet, path, "", "")
		s.Require().Equal(http.StatusUnauthorized, status, path)
		apiErr := s.requireError(body, "unauthorized")
		s.Require().Equal(MsgAuthTokenRequired, apiErr.Message)
	}
	s.Require().Len(s.upstream.Calls(), 1)
	s.Require().Equal(1, s.gw.RateLimitStatus().RequestsInWindow)
}

func (s *APITestSuite) TestInvalidToken() {
	status, body := s.do(http.MethodGet, "/products/1", "", "stale")
	s.Require().Equal(http.StatusUnauthorized, status)
	apiErr := s.requireError(body, "unauthorized")
	s.Require().Equal(gateway.MsgTokenInvalid, apiErr.Message)
	s.Require().Len(s.upstream.Calls(), 1)
}

func (s *APITestSuite) TestUpdateProduct() {
	status, body := s.do(http.MethodPatch, "/products/2", `{"stock": 5}`, testToken)
	s.Require().Equal(http.StatusOK, status)
	var p gateway.Product
	s.Require().NoError(json.Unmarshal([]byte(body), &p))
	s.Require().Equal(5, p.Stock)

	stored, ok := s.upstream.Product("2")
	s.Require().True(ok)
	s.Require().EqualValues(5, stored["stock"])
}

func (s *APITestSuite) TestUpdateProduct_UpstreamUnavailable() {
	unavailable := testutil.ProductAPIResponse{Status: http.StatusServiceUnavailable, Body: `{"message":"maintenance"}`}
	s.upstream.Script(http.MethodPatch, "/products/2", unavailable, unavailable, unavailable)

	status, body := s.do(http.MethodPatch, "/products/2?attempts=2", `{"stock": 5}`, testToken)
	s.Require().Equal(http.StatusBadGateway, status)
	apiErr := s.requireError(body, "badGateway")
	s.Require().Equal(gateway.MsgUpstreamUnavailable, apiErr.Message)
	s.Require().EqualValues(http.StatusServiceUnavailable, apiErr.Context[errContextUpstreamStatus])
	s.Require().Equal(2, s.upstream.CallCount(http.MethodPatch, "/products/2"))
}

func (s *APITestSuite) TestUpdateProduct_MalformedBody() {
	status, body := s.do(http.MethodPatch, "/products/2", `{"stock":`, testToken)
	s.Require().Equal(http.StatusBadRequest, status)
	s.requireError(body, "badRequest")

	status, body = s.do(http.MethodPatch, "/products/2?attempts=many", `{}`, testToken)
	s.Require().Equal(http.StatusBadRequest, status)
	s.requireError(body, ErrCodeInvalidParameter)
	s.Require().Empty(s.upstream.Calls())
}

func (s *APITestSuite) TestBatchUpdateProducts() {
	status, body := s.do(http.MethodPost, "/products/batch",
		`{"updates":[{"id":"1","patch":{"stock":1}},{"id":"9","patch":{"stock":1}}]}`, testToken)
	s.Require().Equal(http.StatusOK, status)

	var res gateway.BatchResult
	s.Require().NoError(json.Unmarshal([]byte(body), &res))
	s.Require().Equal(1, res.SuccessCount)
	s.Require().Equal(1, res.FailedCount)
	s.Require().Equal("9", res.Failed[0].ID)

	calls := s.upstream.Calls()
	s.Require().Len(calls, 1)
	s.Require().NotEmpty(calls[0].Header.Get(gateway.IdempotencyKeyHeader))
}

func (s *APITestSuite) TestBatchUpdateProducts_Invalid() {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "unknown field", body: `{"items":[]}`, wantCode: "badRequest"},
		{name: "empty id", body: `{"updates":[{"id":"","patch":{}}]}`, wantCode: ErrCodeInvalidParameter},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			status, body := s.do(http.MethodPost, "/products/batch", tt.body, testToken)
			s.Require().Equal(http.StatusBadRequest, status)
			s.requireError(body, tt.wantCode)
		})
	}
	s.Require().Empty(s.upstream.Calls())
}

func (s *APITestSuite) TestGatewayCache() {
	for _, id := range []string{"1", "2"} {
		status, _ := s.do(http.MethodGet, "/products/"+id, "", testToken)
		s.Require().Equal(http.StatusOK, status)
	}

	status, body := s.do(http.MethodGet, "/gateway/cache", "", "")
	s.Require().Equal(http.StatusOK, status)
	var stats gateway.CacheStats
	s.Require().NoError(json.Unmarshal([]byte(body), &stats))
	s.Require().Equal(2, stats.Size)
	s.Require().ElementsMatch([]string{"1", "2"}, stats.Keys)

	status, _ = s.do(http.MethodDelete, "/gateway/cache/1", "", "")
	s.Require().Equal(http.StatusNoContent, status)
	s.Require().Equal([]string{"2"}, s.gw.CacheStats().Keys)

	status, _ = s.do(http.MethodDelete, "/gateway/cache", "", "")
	s.Require().Equal(http.StatusNoContent, status)
	s.Require().Equal(0, s.gw.CacheStats().Size)
}

func (s *APITestSuite) TestGatewayRateLimit() {
	status, _ := s.do(http.MethodGet, "/products/1", "", testToken)
	s.Require().Equal(http.StatusOK, status)

	status, body := s.do(http.MethodGet, "/gateway/rate-limit", "", "")
	s.Require().Equal(http.StatusOK, status)
	s.Require().JSONEq(`{"requests_in_window":1,"max_requests":60,"queue_length":0,"window_ms":60000}`, body)
}

func (s *APITestSuite) TestGatewayStopped() {
	s.Require().NoError(s.gw.Stop(true))

	status, body := s.do(http.MethodGet, "/products/1", "", testToken)
	s.Require().Equal(http.StatusServiceUnavailable, status)
	s.requireError(body, ErrCodeGatewayStopped)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{header: "Bearer abc", want: "abc"},
		{header: "bearer  abc ", want: "abc"},
		{header: "Basic abc", want: ""},
		{header: "abc", want: ""},
		{header: "", want: ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/products", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		require.Equal(t, tt.want, bearerToken(req), tt.header)
	}
}
