package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologLoggerMethods(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	var buf bytes.Buffer
	l := NewZerologLogger("test", "debug", &buf)
	if l == nil {
		t.Fatalf("nil logger")
	}
	l.Debugf("debug %d", 1)
	l.Debugw("debug", map[string]any{"k": 1})
	l.Infof("info %s", "test")
	l.Warnf("warn")
	l.Errorf("error")
	assert.Contains(t, buf.String(), "info test")
}

func TestZerologLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologLogger("coord", "warn", &buf)
	l.Infof("hidden")
	l.Warnf("shown")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"component":"coord"`)
}

func TestLogrusLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogrusLogger("api", "debug", &buf)
	l.Debugw("proposal", map[string]any{"score": 85})
	line := strings.TrimSpace(buf.String())
	var m map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &m))
	assert.Equal(t, "api", m["component"])
	assert.Equal(t, float64(85), m["score"])
}

func TestConfigureSelectsBackend(t *testing.T) {
	t.Cleanup(func() {
		_ = Configure(Settings{})
		SetOutput(nil)
	})
	require.NoError(t, Configure(Settings{Backend: "logrus", Level: "info"}))
	var buf bytes.Buffer
	SetOutput(&buf)
	_, ok := New("x").(*LogrusLogger)
	assert.True(t, ok)
	assert.Error(t, Configure(Settings{Backend: "stdlib"}))
}
