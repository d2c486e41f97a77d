package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"verbose", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "staging", LogLevel: "warn", LogFormat: "json"}, &buf)

	log.Info("dropped")
	log.Warn("kept")
	log.Errorf("kept %d", 2)

	entries := decode(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "warn", entries[0]["level"])
	assert.Equal(t, "kept", entries[0]["message"])
	assert.Equal(t, "staging", entries[0]["env"])
	assert.Equal(t, "kept 2", entries[1]["message"])
}

func TestNewWithWriter_Console(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "development", LogLevel: "debug", LogFormat: "console"}, &buf)

	log.Debug("hello console")
	assert.Contains(t, buf.String(), "hello console")
	assert.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())), "console output is not JSON")
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{Env: "production", LogLevel: "debug"}, &buf)

	log.WithRun("kospi-vol", "abc123").
		WithFields(map[string]interface{}{
			"factor":   "cmra",
			"coverage": 0.5,
		}).
		WithField("stocks", 3).
		Info("factor computed")

	entries := decode(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "kospi-vol", entries[0]["run"])
	assert.Equal(t, "abc123", entries[0]["run_hash"])
	assert.Equal(t, "cmra", entries[0]["factor"])
	assert.Equal(t, 0.5, entries[0]["coverage"])
	assert.Equal(t, float64(3), entries[0]["stocks"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&config.Config{LogLevel: "info"}, &buf)

	log.WithError(errors.New("connection refused")).Error("fetch failed")

	entries := decode(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0]["error"])
	assert.Equal(t, "error", entries[0]["level"])
}

func TestNop(t *testing.T) {
	assert.NotPanics(t, func() {
		Nop().WithField("k", "v").Info("nothing")
	})
}
