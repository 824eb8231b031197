/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureStderr runs fn with os.Stderr redirected to a pipe and returns what was written.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	defer func() { os.Stderr = old }()

	go func() {
		fn()
		_ = w.Close()
	}()

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestLoggerJSON(t *testing.T) {
	out := captureStderr(t, func() {
		logger, closeFn := NewLogger(&Config{Output: OutputStderr, Format: FormatJSON, Level: LevelInfo})
		logger.Debug("skipped")
		logger.With(String("product_id", "42")).Error("update failed", Error(errors.New("upstream unavailable")))
		closeFn()
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "update failed", entry["msg"])
	require.Equal(t, "42", entry["product_id"])
	require.Equal(t, "upstream unavailable", entry["error"])
	require.Equal(t, os.Getpid(), int(entry["pid"].(float64)))
}

func TestLoggerText(t *testing.T) {
	out := captureStderr(t, func() {
		logger, closeFn := NewLogger(&Config{Output: OutputStderr, Format: FormatText, Level: LevelDebug, NoColor: true})
		logger.AtLevel(LevelWarn, func(logFunc LogFunc) {
			logFunc("retrying", Int("attempt", 2))
		})
		closeFn()
	})

	require.Contains(t, out, "|WARN|")
	require.Contains(t, out, " retrying ")
	require.Contains(t, out, "attempt=2")
	require.Contains(t, out, fmt.Sprintf("pid=%d", os.Getpid()))
}

func TestLoggerWithLevel(t *testing.T) {
	out := captureStderr(t, func() {
		logger, closeFn := NewLogger(&Config{Output: OutputStderr, Format: FormatJSON, Level: LevelDebug})
		logger.WithLevel(LevelError).Warnf("dropped %d", 1)
		closeFn()
	})
	require.Empty(t, out)
}

func TestResolvePlaceholders(t *testing.T) {
	res := resolvePlaceholders("/var/log/peyvandyar-{{pid}}.log")
	require.Equal(t, fmt.Sprintf("/var/log/peyvandyar-%d.log", os.Getpid()), res)
}
