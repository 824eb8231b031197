/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"net/http/httptest"

	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

type errorEnvelope struct {
	Error struct {
		Domain string `json:"domain"`
		Code   string `json:"code"`
	} `json:"error"`
}

// RequireErrorInRecorder asserts that the recorded response is a JSON error envelope ({"error": ...})
// with the given status, domain and code. The recorder body is left intact.
func RequireErrorInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	markHelper(t)
	require.Equal(t, wantHTTPCode, resp.Code)
	require.Equal(t, contentTypeAppJSON, resp.Header().Get("Content-Type"))
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.Equal(t, wantErrDomain, envelope.Error.Domain)
	require.Equal(t, wantErrCode, envelope.Error.Code)
}

// RequireEmptyBodyInRecorder asserts that nothing was written to the response body.
func RequireEmptyBodyInRecorder(t require.TestingT, resp *httptest.ResponseRecorder) {
	markHelper(t)
	require.Equal(t, 0, resp.Body.Len())
}

// RequireJSONInRecorder decodes the recorded JSON body into dest and compares it with want.
// The recorder body is left intact, so it can be inspected afterwards.
func RequireJSONInRecorder(t require.TestingT, resp *httptest.ResponseRecorder, want, dest interface{}) {
	markHelper(t)
	require.Equal(t, contentTypeAppJSON, resp.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), dest))
	require.Equal(t, want, dest)
}
