/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mjsoltani/peyvandyar/log"
)

func TestRecorder(t *testing.T) {
	rec := NewRecorder()
	rec.With(log.String("product_id", "7")).Warn("upstream call failed", log.Int("status", 503))
	rec.Info("processor started")

	require.Len(t, rec.Entries(), 2)

	_, found := rec.FindEntry("unknown")
	require.False(t, found)

	entry, found := rec.FindEntry("upstream call failed")
	require.True(t, found)
	require.Equal(t, log.LevelWarn, entry.Level)

	status, found := entry.FindField("status")
	require.True(t, found)
	require.Equal(t, 503, int(status.Int))

	productID, found := entry.FindField("product_id")
	require.True(t, found)
	require.Equal(t, "7", string(productID.Bytes))

	warnings := rec.FindEntries(func(e RecordedEntry) bool { return e.Level == log.LevelWarn })
	require.Len(t, warnings, 1)

	rec.Reset()
	require.Empty(t, rec.Entries())
}

func TestRecorderWithLevel(t *testing.T) {
	rec := NewRecorder()
	rec.WithLevel(log.LevelWarn).Info("dropped")
	require.Empty(t, rec.Entries())
}
