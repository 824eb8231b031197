/*
Copyright © 2025 Peyvandyar authors.

Released under MIT license.
*/

package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mjsoltani/peyvandyar/httpclient"
	"github.com/mjsoltani/peyvandyar/restapi"
)

// ErrStopped is returned for requests that the gateway will not run because it has been stopped.
var ErrStopped = errors.New("gateway is stopped")

// ErrQueueFull is wrapped by the KindRateExceeded error returned when the bounded queue has no room.
var ErrQueueFull = errors.New("request queue is full")

// Kind is a category of gateway errors.
type Kind string

// Error kinds.
const (
	// KindTransport is a failure below the HTTP layer (network, DNS, timeout).
	KindTransport Kind = "transport"
	// KindClient is a 4xx response. The request itself is invalid or unauthorized and is never retried.
	KindClient Kind = "client"
	// KindUpstream is a 5xx (or otherwise unusable) response. It is transient and may be retried.
	KindUpstream Kind = "upstream"
	// KindRateExceeded is a local admission failure. It never reaches the network.
	KindRateExceeded Kind = "rate_exceeded"
)

// User-facing messages.
const (
	MsgTokenInvalid        = "Authorization token is invalid or expired."
	MsgForbidden           = "Insufficient access to the resource."
	MsgNotFound            = "Resource not found."
	MsgRateLimited         = "Rate limited by the product API."
	MsgUpstreamServerError = "Product API server error."
	MsgUpstreamUnavailable = "Product API is unavailable."
	MsgRequestFailed       = "Request to the product API failed."
	MsgQueueFull           = "Too many pending requests to the product API."
	MsgInvalidRequest      = "Invalid request."
)

// Error is a classified failure of a gateway operation.
type Error struct {
	Kind Kind
	// StatusCode is the upstream HTTP status, 0 when no response was received.
	StatusCode int
	Message    string
	// Details is the upstream error text (message or raw body), if any.
	Details string
	Err     error
}

func (e *Error) Error() string {
	s := fmt.Sprintf("product gateway: %s error", e.Kind)
	if e.StatusCode != 0 {
		s += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	s += ": " + e.Message
	if e.Details != "" {
		s += " " + e.Details
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether re-sending the same request may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransport || e.Kind == KindUpstream
}

// IsRetryable reports whether err is a retryable gateway error.
func IsRetryable(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr) && gwErr.Retryable()
}

// Classify maps an upstream HTTP status (0 for a transport failure) to a user-facing message and retry eligibility.
// All 4xx statuses are terminal, everything else is retryable.
func Classify(statusCode int) (message string, retryable bool) {
	switch statusCode {
	case http.StatusUnauthorized:
		return MsgTokenInvalid, false
	case http.StatusForbidden:
		return MsgForbidden, false
	case http.StatusNotFound:
		return MsgNotFound, false
	case http.StatusTooManyRequests:
		return MsgRateLimited, false
	case http.StatusInternalServerError:
		return MsgUpstreamServerError, true
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return MsgUpstreamUnavailable, true
	}
	return MsgRequestFailed, !isClientStatus(statusCode)
}

func isClientStatus(statusCode int) bool {
	return statusCode >= 400 && statusCode < 500
}

func newStatusError(statusCode int, details string, err error) *Error {
	msg, _ := Classify(statusCode)
	kind := KindUpstream
	switch {
	case statusCode == 0:
		kind = KindTransport
	case isClientStatus(statusCode):
		kind = KindClient
	}
	return &Error{Kind: kind, StatusCode: statusCode, Message: msg, Details: details, Err: err}
}

// classifyCallError turns the error of a single upstream call into *Error.
func classifyCallError(err error) *Error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}
	if errors.Is(err, httpclient.ErrNoAuthToken) {
		return newStatusError(http.StatusUnauthorized, "", err)
	}
	var clientErr *restapi.ClientError
	if !errors.As(err, &clientErr) {
		return newStatusError(0, "", err)
	}
	if clientErr.IsTransport() {
		return newStatusError(0, "", clientErr.Err)
	}
	if clientErr.StatusCode >= 200 && clientErr.StatusCode < 300 {
		// Unusable 2xx body, e.g. malformed JSON.
		return &Error{Kind: KindUpstream, StatusCode: clientErr.StatusCode, Message: MsgRequestFailed,
			Details: clientErr.Message, Err: clientErr.Err}
	}
	details := clientErr.Message
	if details == "" || details == http.StatusText(clientErr.StatusCode) {
		details = clientErr.Body
	}
	return newStatusError(clientErr.StatusCode, details, nil)
}

func newQueueFullError() *Error {
	return &Error{Kind: KindRateExceeded, Message: MsgQueueFull, Err: ErrQueueFull}
}
