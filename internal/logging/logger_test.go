package logging

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesFileAndConsole(t *testing.T) {
	var console bytes.Buffer
	l, err := New(Config{
		Dir:     t.TempDir(),
		Level:   "info",
		Console: true,
		File:    true,
		Out:     &console,
	})
	require.NoError(t, err)

	l.Info("rig", "woke up", map[string]any{"gesture": "wave"})
	require.NoError(t, l.Close())

	data, err := os.ReadFile(l.LogPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"rig"`)
	assert.Contains(t, string(data), `"gesture":"wave"`)
	assert.Contains(t, console.String(), "woke up")
}

func TestLevelFiltersHistory(t *testing.T) {
	l, err := New(Config{Level: "warn"})
	require.NoError(t, err)

	l.Info("feed", "connected", nil)
	l.Warn("feed", "reconnecting", map[string]any{"delay": "3s"})
	l.Error("feed", "dial failed", errors.New("refused"), nil)

	h := l.History(0)
	require.Len(t, h, 2)
	assert.Equal(t, "warn", h[0].Level)
	assert.Equal(t, "delay=3s", h[0].Data)
	assert.Equal(t, "error=refused", h[1].Data)
}

func TestHistoryIsBounded(t *testing.T) {
	l, err := New(Config{Level: "debug", MaxHistory: 3})
	require.NoError(t, err)

	for _, msg := range []string{"a", "b", "c", "d", "e"} {
		l.Info("test", msg, nil)
	}

	h := l.History(0)
	require.Len(t, h, 3)
	assert.Equal(t, "e", h[2].Message)

	last := l.History(1)
	require.Len(t, last, 1)
	assert.Equal(t, "e", last[0].Message)
}

func TestComponentLoggerRecordsHistory(t *testing.T) {
	l := Nop()

	var streamed []LogEntry
	l.SetOnLog(func(e LogEntry) { streamed = append(streamed, e) })

	log := l.Component("animator")
	log.Info().Str("gesture", "wave").Msg("gesture changed")
	log.Trace().Msg("below level")

	require.Len(t, streamed, 1)
	assert.Equal(t, "animator", streamed[0].Component)
	assert.Equal(t, "gesture changed", streamed[0].Message)
	assert.Equal(t, "info", streamed[0].Level)
}

func TestFormatDataIsSorted(t *testing.T) {
	got := formatData(map[string]any{"b": 2, "a": 1, "c": "x"})
	assert.Equal(t, "a=1, b=2, c=x", got)
	assert.Empty(t, formatData(nil))
}
