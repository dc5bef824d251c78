package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetOutput(os.Stderr)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel(" debug ")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, l)

	l, err = ParseLevel("Warn")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l)

	l, err = ParseLevel("verbose")
	assert.Error(t, err)
	assert.Equal(t, LevelInfo, l)
}

func TestLevelFiltering(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("hidden debug")
	Info("hidden info")
	Warn("shown warn")
	Error("shown error", errors.New("boom"))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[WARN] shown warn")
	assert.Contains(t, out, "[ERROR] shown error err=boom")
}

func TestKeyValues(t *testing.T) {
	buf := capture(t, LevelDebug)

	Info("roster loaded", "people", 12, "source", "Thistle Pollock", 42, "ignored", "dangling")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `[INFO] roster loaded people=12 source="Thistle Pollock"`)
	assert.NotContains(t, line, "ignored")
	assert.NotContains(t, line, "dangling")
}

func TestSetLevelIgnoresUnknown(t *testing.T) {
	buf := capture(t, LevelError)
	SetLevel(Level("LOUD"))

	Info("still hidden")
	assert.Empty(t, buf.String())
}
