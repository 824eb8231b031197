/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"errors"
	"fmt"
	"net/url"
)

// ClientError is returned by DoRequestAndUnmarshalJSON when the upstream call did not produce a usable result.
// StatusCode is 0 when no HTTP response was received.
type ClientError struct {
	Message    string
	Method     string
	URL        *url.URL
	StatusCode int
	// Body holds the (possibly truncated) raw response body of a non-2xx response.
	Body string
	Err  error
}

func (e *ClientError) wrap(message string, err error) *ClientError {
	e.Message = message
	e.Err = err
	return e
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	str := fmt.Sprintf("method: [%s] url: [%s] status: [%d] message: %s", e.Method, e.URL, e.StatusCode, e.Message)
	if e.Err != nil {
		str += fmt.Sprintf(" error: %s", e.Err.Error())
	}
	return str
}

// IsTransport reports whether the request failed before any HTTP response was received.
func (e *ClientError) IsTransport() bool {
	return e.StatusCode == 0
}

// Is allows checking the wrapped error with errors.Is.
func (e *ClientError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// Unwrap allows checking the wrapped error with errors.As.
func (e *ClientError) Unwrap() error {
	return e.Err
}
