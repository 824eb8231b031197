/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"net/http"

	"github.com/rs/xid"

	"github.com/mjsoltani/peyvandyar/httpserver/middleware"
)

const headerRequestID = "X-Request-ID"

// RequestIDRoundTripper sets X-Request-ID header in outgoing requests.
// The id of the inbound request is propagated, a new xid is generated when there is none.
type RequestIDRoundTripper struct {
	Delegate          http.RoundTripper
	RequestIDProvider func(ctx context.Context) string
}

// NewRequestIDRoundTripper creates an HTTP transport with X-Request-ID header support.
func NewRequestIDRoundTripper(delegate http.RoundTripper) *RequestIDRoundTripper {
	return &RequestIDRoundTripper{Delegate: delegate, RequestIDProvider: middleware.GetRequestIDFromContext}
}

// RoundTrip adds X-Request-ID header to the request.
func (rt *RequestIDRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.Header.Get(headerRequestID) != "" {
		return rt.Delegate.RoundTrip(r)
	}
	requestID := ""
	if rt.RequestIDProvider != nil {
		requestID = rt.RequestIDProvider(r.Context())
	}
	if requestID == "" {
		requestID = xid.New().String()
	}
	r = r.Clone(r.Context()) // Per RoundTripper contract.
	r.Header.Set(headerRequestID, requestID)
	return rt.Delegate.RoundTrip(r)
}
