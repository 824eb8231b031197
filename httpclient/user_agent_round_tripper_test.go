/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUserAgentRoundTripper(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
	}))
	defer server.Close()

	tests := []struct {
		name      string
		strategy  UserAgentUpdateStrategy
		reqHeader string
		expected  string
	}{
		{name: "empty header, set", strategy: UserAgentUpdateStrategySetIfEmpty, expected: "peyvandyar/1.0"},
		{name: "non-empty header, set", strategy: UserAgentUpdateStrategySetIfEmpty, reqHeader: "curl", expected: "curl"},
		{name: "non-empty header, append", strategy: UserAgentUpdateStrategyAppend, reqHeader: "curl", expected: "curl peyvandyar/1.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := NewUserAgentRoundTripper(http.DefaultTransport, "peyvandyar/1.0")
			rt.UpdateStrategy = tt.strategy
			req, err := http.NewRequest(http.MethodGet, server.URL, nil)
			require.NoError(t, err)
			if tt.reqHeader != "" {
				req.Header.Set("User-Agent", tt.reqHeader)
			}
			resp, err := (&http.Client{Transport: rt}).Do(req)
			require.NoError(t, err)
			require.NoError(t, resp.Body.Close())
			require.Equal(t, tt.expected, gotUserAgent)
		})
	}
}
