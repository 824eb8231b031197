/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjsoltani/peyvandyar/httpclient"
	"github.com/mjsoltani/peyvandyar/restapi"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status        int
		wantMsg       string
		wantRetryable bool
	}{
		{0, MsgRequestFailed, true},
		{http.StatusBadRequest, MsgRequestFailed, false},
		{http.StatusUnauthorized, MsgTokenInvalid, false},
		{http.StatusForbidden, MsgForbidden, false},
		{http.StatusNotFound, MsgNotFound, false},
		{http.StatusConflict, MsgRequestFailed, false},
		{http.StatusTooManyRequests, MsgRateLimited, false},
		{http.StatusInternalServerError, MsgUpstreamServerError, true},
		{http.StatusNotImplemented, MsgRequestFailed, true},
		{http.StatusBadGateway, MsgUpstreamUnavailable, true},
		{http.StatusServiceUnavailable, MsgUpstreamUnavailable, true},
		{http.StatusGatewayTimeout, MsgUpstreamUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			msg, retryable := Classify(tt.status)
			require.Equal(t, tt.wantMsg, msg)
			require.Equal(t, tt.wantRetryable, retryable)
		})
	}
}

func TestClassifyCallError(t *testing.T) {
	u, _ := url.Parse("http://upstream/products/1")
	netErr := errors.New("connection refused")

	tests := []struct {
		name        string
		err         error
		wantKind    Kind
		wantStatus  int
		wantDetails string
		wantIs      error
	}{
		{
			name:     "no auth token",
			err:      fmt.Errorf("get token: %w", httpclient.ErrNoAuthToken),
			wantKind: KindClient, wantStatus: http.StatusUnauthorized,
			wantIs: httpclient.ErrNoAuthToken,
		},
		{
			name:     "transport",
			err:      &restapi.ClientError{Message: "do request", Method: http.MethodGet, URL: u, Err: netErr},
			wantKind: KindTransport, wantStatus: 0,
			wantIs: netErr,
		},
		{
			name: "upstream message",
			err: &restapi.ClientError{Message: "price is invalid", Method: http.MethodPatch, URL: u,
				StatusCode: http.StatusBadRequest, Body: `{"message":"price is invalid"}`},
			wantKind: KindClient, wantStatus: http.StatusBadRequest,
			wantDetails: "price is invalid",
		},
		{
			name: "raw body",
			err: &restapi.ClientError{Message: http.StatusText(http.StatusBadGateway), Method: http.MethodGet, URL: u,
				StatusCode: http.StatusBadGateway, Body: "<html>bad gateway</html>"},
			wantKind: KindUpstream, wantStatus: http.StatusBadGateway,
			wantDetails: "<html>bad gateway</html>",
		},
		{
			name: "malformed success body",
			err: &restapi.ClientError{Message: "unmarshaling response", Method: http.MethodGet, URL: u,
				StatusCode: http.StatusOK, Err: errors.New("invalid character")},
			wantKind: KindUpstream, wantStatus: http.StatusOK,
			wantDetails: "unmarshaling response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gwErr := classifyCallError(tt.err)
			require.Equal(t, tt.wantKind, gwErr.Kind)
			require.Equal(t, tt.wantStatus, gwErr.StatusCode)
			require.Equal(t, tt.wantDetails, gwErr.Details)
			if tt.wantIs != nil {
				require.ErrorIs(t, gwErr, tt.wantIs)
			}
		})
	}
}

func TestError(t *testing.T) {
	err := newStatusError(http.StatusNotFound, "product not found", nil)
	require.EqualError(t, err, "product gateway: client error (status 404): Resource not found. product not found")
	require.False(t, err.Retryable())

	err = newStatusError(0, "", errors.New("dial tcp: timeout"))
	require.EqualError(t, err, "product gateway: transport error: Request to the product API failed.: dial tcp: timeout")
	require.True(t, err.Retryable())

	wrapped := fmt.Errorf("update: %w", newStatusError(http.StatusInternalServerError, "", nil))
	require.True(t, IsRetryable(wrapped))
	require.False(t, IsRetryable(errors.New("plain")))
	require.False(t, IsRetryable(newQueueFullError()))
}
