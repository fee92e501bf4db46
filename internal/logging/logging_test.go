package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{input: "debug", expected: slog.LevelDebug},
		{input: "INFO", expected: slog.LevelInfo},
		{input: "", expected: slog.LevelInfo},
		{input: "warning", expected: slog.LevelWarn},
		{input: " error ", expected: slog.LevelError},
		{input: "trace", expected: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "json", "info")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("search completed", "results", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "search completed", entry["msg"])
	assert.Equal(t, float64(3), entry["results"])
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "text", "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("falling back", "reason", "timeout")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=\"falling back\"")
	assert.Contains(t, out, "reason=timeout")
}

func TestNew_InvalidInput(t *testing.T) {
	_, err := New(&bytes.Buffer{}, "xml", "info")
	assert.ErrorContains(t, err, "log format")

	_, err = New(&bytes.Buffer{}, "text", "loud")
	assert.ErrorContains(t, err, "log level")
}
