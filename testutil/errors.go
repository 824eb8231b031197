/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"github.com/stretchr/testify/require"
)

// tHelper is implemented by *testing.T and lets assertions be reported at the caller's line.
type tHelper interface {
	Helper()
}

func markHelper(t interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
}

// RequireNoErrorInChannel fails the test if the buffered channel holds a non-nil error.
// An empty channel passes.
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	markHelper(t)
	var err error
	select {
	case err = <-c:
	default:
	}
	require.NoError(t, err, msgAndArgs...)
}
