package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("creates with default config", func(t *testing.T) {
		l := New(nil)
		assert.NotNil(t, l)
		assert.NotNil(t, l.Logger)
	})

	t.Run("creates with custom config", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(&Config{
			Level:  "debug",
			Format: "json",
			Output: buf,
		})
		assert.NotNil(t, l)

		l.Info("test message")
		assert.Contains(t, buf.String(), "test message")
	})

	t.Run("creates text format logger", func(t *testing.T) {
		buf := &bytes.Buffer{}
		l := New(&Config{
			Level:  "info",
			Format: "text",
			Output: buf,
		})

		l.Info("test message")
		output := buf.String()
		assert.Contains(t, output, "test message")
		// Text format should not be JSON
		assert.False(t, strings.HasPrefix(output, "{"))
	})
}

func TestLogger_With(t *testing.T) {
	buf := &bytes.Buffer{}
	l := New(&Config{
		Level:  "info",
		Format: "json",
		Output: buf,
	})

	l2 := l.With("key", "value")
	l2.Info("test message")

	var entry map[string]any
	err := json.Unmarshal(buf.Bytes(), &entry)
	require.NoError(t, err)

	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "test message", entry["msg"])
}

func TestLogger_Context(t *testing.T) {
	t.Run("ContextWithLogger and FromContext", func(t *testing.T) {
		l := New(&Config{Level: "info", Format: "json", Output: &bytes.Buffer{}})

		ctx := ContextWithLogger(context.Background(), l)
		retrieved := FromContext(ctx)

		assert.Equal(t, l, retrieved)
	})

	t.Run("FromContext returns default when not set", func(t *testing.T) {
		l := FromContext(context.Background())
		assert.NotNil(t, l)
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"}, // default
		{"", "INFO"},        // default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level := parseLevel(tt.input)
			assert.Equal(t, tt.expected, level.String())
		})
	}
}

func TestNewZapLogger(t *testing.T) {
	tests := []string{"debug", "info", "warn", "error", ""}
	for _, level := range tests {
		t.Run("level "+level, func(t *testing.T) {
			l, err := NewZapLogger(&Config{Level: level, Format: "json"})
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}
