package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "NONE", LevelNone.String())
	assert.Equal(t, "", Level(42).String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   Level
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"off", LevelNone, true},
		{"verbose", LevelInfo, false},
	}
	for _, tt := range tests {
		got, ok := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, "ParseLevel(%q)", tt.in)
		assert.Equal(t, tt.wantOK, ok, "ParseLevel(%q) ok", tt.in)
	}
}

func TestLogger_Filtering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warn("warn %d", 3)
	l.Error("error %d", 4)
	require.NoError(t, l.Sync())

	out := buf.String()
	assert.NotContains(t, out, "debug 1")
	assert.NotContains(t, out, "info 2")
	assert.Contains(t, out, "warn 3")
	assert.Contains(t, out, "error 4")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, "txclient")
}

func TestLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelError)

	assert.False(t, l.Enabled(LevelDebug))
	l.Debug("hidden")

	l.SetLevel(LevelDebug)
	assert.True(t, l.Enabled(LevelDebug))
	l.Debug("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestLogger_None(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelNone)

	l.Error("nothing")
	assert.Empty(t, buf.String())
	assert.False(t, l.Enabled(LevelError))
	assert.False(t, l.Enabled(LevelNone))
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSON(&buf, LevelInfo).With("operation", "$expand")

	l.Info("sent")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `"operation":"$expand"`)
	assert.Contains(t, line, `"msg":"sent"`)
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("dropped")
	assert.False(t, l.Enabled(LevelError))
}

func TestDefault(t *testing.T) {
	orig := Default()
	defer SetDefault(orig)

	var buf bytes.Buffer
	SetDefault(New(&buf, LevelDebug))
	Info("package %s", "level")

	assert.Contains(t, buf.String(), "package level")
}
