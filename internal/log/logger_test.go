package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, level Level) *DefaultLogger {
	l := New(LoggerConfig{Level: level, Stderr: buf})
	l.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return l
}

func TestFormatMessage(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		args []interface{}
		want string
	}{
		{"no args", "built", nil, "built"},
		{"pairs", "built", []interface{}{"file", "a.js", "nodes", 3}, "built file=a.js nodes=3"},
		{"odd leading arg", "failed", []interface{}{"boom", "file", "a.js"}, "failed detail=boom file=a.js"},
		{"quoted value", "skip", []interface{}{"reason", "parse error"}, `skip reason="parse error"`},
		{"non-string key", "x", []interface{}{1, 2}, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMessage(tt.msg, tt.args...))
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, WarnLevel)

	l.Debug("debug")
	l.Info("info")
	l.Warn("warn", "k", "v")
	l.Error("error")

	out := buf.String()
	assert.NotContains(t, out, "debug")
	assert.NotContains(t, out, "INFO")
	assert.Contains(t, out, "[2026-01-02 03:04:05] WARN: warn k=v\n")
	assert.Contains(t, out, "ERROR: error")

	buf.Reset()
	l.SetLevel(DebugLevel)
	l.Debug("now visible")
	assert.Contains(t, buf.String(), "DEBUG: now visible")
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, InfoLevel)
	l.SetJSONOutput(true)

	l.Info("built", "file", "a.js", "nodes", 3, "err", errors.New("boom"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "built", entry["message"])
	assert.Equal(t, "a.js", entry["file"])
	assert.Equal(t, float64(3), entry["nodes"])
	assert.Equal(t, "boom", entry["err"])
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"debug": DebugLevel, "INFO": InfoLevel, "": InfoLevel, "warning": WarnLevel, "error": ErrorLevel} {
		got, err := ParseLevel(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestNopAndSpinner(t *testing.T) {
	Nop().Error("dropped")

	var buf bytes.Buffer
	s := NewProgressSpinner(&buf, "working")
	s.Start()
	s.Start()
	s.Message("still working")
	s.Stop()
	s.Stop()
	assert.True(t, strings.HasSuffix(buf.String(), "\r\033[K"))
}
