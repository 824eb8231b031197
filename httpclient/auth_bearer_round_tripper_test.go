/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type staticAuthProvider struct {
	token string
	err   error
}

func (p staticAuthProvider) GetToken(context.Context) (string, error) {
	return p.token, p.err
}

func TestAuthBearerRoundTripper(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	t.Run("token from context", func(t *testing.T) {
		client := &http.Client{Transport: NewAuthBearerRoundTripper(http.DefaultTransport, ContextAuthProvider{})}
		ctx := NewContextWithAuthToken(context.Background(), "abc")
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, "Bearer abc", gotAuth)
	})

	t.Run("explicit header is kept", func(t *testing.T) {
		client := &http.Client{Transport: NewAuthBearerRoundTripper(http.DefaultTransport, ContextAuthProvider{})}
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer explicit")
		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, "Bearer explicit", gotAuth)
	})

	t.Run("no token", func(t *testing.T) {
		client := &http.Client{Transport: NewAuthBearerRoundTripper(http.DefaultTransport, ContextAuthProvider{})}
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		_, err = client.Do(req) // nolint:bodyclose
		require.ErrorIs(t, err, ErrNoAuthToken)
		var authErr *AuthBearerRoundTripperError
		require.True(t, errors.As(err, &authErr))
	})

	t.Run("provider error", func(t *testing.T) {
		providerErr := errors.New("token service is down")
		client := &http.Client{Transport: NewAuthBearerRoundTripper(http.DefaultTransport, staticAuthProvider{err: providerErr})}
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		_, err = client.Do(req) // nolint:bodyclose
		require.ErrorIs(t, err, providerErr)
	})
}
