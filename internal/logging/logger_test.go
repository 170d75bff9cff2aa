package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "test", LevelWarn)

	l.Info("hidden")
	l.Debug("hidden too")
	l.Warn("shown", "stage", "lines")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[test] ")
	assert.Contains(t, out, "[WARN] shown stage=lines")
}

func TestWithAppendsFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "test", LevelDebug).With("doc", "abc")

	l.Info("step", "n", 2)
	assert.Contains(t, buf.String(), "[INFO] step doc=abc n=2")
}

func TestOddKVIgnored(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "test", LevelDebug)

	l.Error("boom", "k")
	assert.Contains(t, buf.String(), "[ERROR] boom\n")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() { l.Info("nothing") })
}
