/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/require"
)

func TestRequestIDHandler_ServeHTTP(t *testing.T) {
	var gotReqID, gotIntReqID string
	next := http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotReqID = GetRequestIDFromContext(r.Context())
		gotIntReqID = GetInternalRequestIDFromContext(r.Context())
	})

	t.Run("ids are generated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		resp := httptest.NewRecorder()
		RequestID()(next).ServeHTTP(resp, req)

		_, err := xid.FromString(gotReqID)
		require.NoError(t, err)
		_, err = xid.FromString(gotIntReqID)
		require.NoError(t, err)
		require.NotEqual(t, gotReqID, gotIntReqID)
		require.Equal(t, gotReqID, resp.Header().Get(headerRequestID))
		require.Equal(t, gotIntReqID, resp.Header().Get(headerInternalRequestID))
	})

	t.Run("external id is taken from the request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(headerRequestID, "client-id")
		resp := httptest.NewRecorder()
		RequestIDWithOpts(RequestIDOpts{GenerateInternalID: func() string { return "int-id" }})(next).ServeHTTP(resp, req)

		require.Equal(t, "client-id", gotReqID)
		require.Equal(t, "int-id", gotIntReqID)
		require.Equal(t, "client-id", resp.Header().Get(headerRequestID))
		require.Equal(t, "int-id", resp.Header().Get(headerInternalRequestID))
	})
}
