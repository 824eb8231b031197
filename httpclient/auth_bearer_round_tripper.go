/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNoAuthToken is returned when no bearer token is available for the outgoing request.
var ErrNoAuthToken = errors.New("no auth token")

// AuthBearerRoundTripperError is returned in RoundTrip method of AuthBearerRoundTripper
// when the token cannot be obtained.
type AuthBearerRoundTripperError struct {
	Inner error
}

func (e *AuthBearerRoundTripperError) Error() string {
	return fmt.Sprintf("auth bearer round trip: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *AuthBearerRoundTripperError) Unwrap() error {
	return e.Inner
}

// AuthProvider provides a token for bearer authorization.
type AuthProvider interface {
	GetToken(ctx context.Context) (string, error)
}

// ContextAuthProvider takes the token put into the request context with NewContextWithAuthToken.
// Tokens are issued and refreshed by the caller, the client never manages them.
type ContextAuthProvider struct{}

// GetToken returns the token from ctx or ErrNoAuthToken.
func (ContextAuthProvider) GetToken(ctx context.Context) (string, error) {
	if token := GetAuthTokenFromContext(ctx); token != "" {
		return token, nil
	}
	return "", ErrNoAuthToken
}

// AuthBearerRoundTripper implements http.RoundTripper interface
// and sets Authorization HTTP header in all outgoing requests.
type AuthBearerRoundTripper struct {
	Delegate     http.RoundTripper
	AuthProvider AuthProvider
}

// NewAuthBearerRoundTripper creates a new AuthBearerRoundTripper.
func NewAuthBearerRoundTripper(delegate http.RoundTripper, authProvider AuthProvider) *AuthBearerRoundTripper {
	return &AuthBearerRoundTripper{delegate, authProvider}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
// An explicitly set Authorization header is left intact.
func (rt *AuthBearerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("Authorization") != "" {
		return rt.Delegate.RoundTrip(req)
	}
	token, err := rt.AuthProvider.GetToken(req.Context())
	if err != nil {
		if req.Body != nil {
			_ = req.Body.Close() // Per RoundTripper contract.
		}
		return nil, &AuthBearerRoundTripperError{Inner: err}
	}
	req = req.Clone(req.Context()) // Per RoundTripper contract.
	req.Header.Set("Authorization", "Bearer "+token)
	return rt.Delegate.RoundTrip(req)
}
