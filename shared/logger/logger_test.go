package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBuffered(t *testing.T, cfg Config) (*Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cfg.writer = buf
	l, err := New(&cfg)
	require.NoError(t, err)
	return l, buf
}

func entries(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		out = append(out, e)
	}
	return out
}

func TestNew_JSONCorrelationAttributes(t *testing.T) {
	l, buf := newBuffered(t, Config{Level: "info", Format: "json"})

	l.Info("Broadcast requeued for failed recipients",
		EnvelopeID("env-7"),
		JobID("job-42"),
		Kind("broadcast"),
		UserID("tr-2"),
	)

	got := entries(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "INFO", got[0]["level"])
	assert.Equal(t, "Broadcast requeued for failed recipients", got[0]["msg"])
	assert.Equal(t, "env-7", got[0][KeyEnvelopeID])
	assert.Equal(t, "job-42", got[0][KeyJobID])
	assert.Equal(t, "broadcast", got[0][KeyKind])
	assert.Equal(t, "tr-2", got[0][KeyUserID])
	assert.Contains(t, got[0], "time")
}

func TestNew_LevelThreshold(t *testing.T) {
	tests := []struct {
		level string
		want  []string
	}{
		{level: "debug", want: []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{level: "info", want: []string{"INFO", "WARN", "ERROR"}},
		{level: "warning", want: []string{"WARN", "ERROR"}},
		{level: "error", want: []string{"ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			l, buf := newBuffered(t, Config{Level: tt.level, Format: "json"})

			l.Debug("Processing notification", JobID("job-1"))
			l.Info("Booking accepted", JobID("job-1"))
			l.Warn("Push skipped", JobID("job-1"))
			l.Error("Failed to deliver notification", JobID("job-1"))

			var levels []string
			for _, e := range entries(t, buf) {
				levels = append(levels, e["level"].(string))
				assert.Equal(t, "job-1", e[KeyJobID])
			}
			assert.Equal(t, tt.want, levels)
		})
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	l, buf := newBuffered(t, Config{Level: "info"})

	l.Info("Booking created", JobID("job-9"))

	out := buf.String()
	assert.Contains(t, out, "INF")
	assert.Contains(t, out, "Booking created")
	assert.Contains(t, out, "job-9")
}

func TestNew_SourceLocation(t *testing.T) {
	l, buf := newBuffered(t, Config{Format: "json", EnableSource: true})

	l.Info("Worker started")

	got := entries(t, buf)
	require.Len(t, got, 1)
	source, ok := got[0]["source"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, source["file"], "logger_test.go")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worker.log")

	first, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	first.Info("Notification delivered", EnvelopeID("env-1"), Kind("sms"))

	// a restarted process appends instead of truncating
	second, err := New(&Config{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)
	second.Info("Notification delivered", EnvelopeID("env-2"), Kind("email"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got := entries(t, bytes.NewBuffer(data))
	require.Len(t, got, 2)
	assert.Equal(t, "env-1", got[0][KeyEnvelopeID])
	assert.Equal(t, "sms", got[0][KeyKind])
	assert.Equal(t, "env-2", got[1][KeyEnvelopeID])
	assert.Equal(t, "email", got[1][KeyKind])
}

func TestNew_UnwritableFile(t *testing.T) {
	_, err := New(&Config{Output: filepath.Join(t.TempDir(), "missing", "api.log")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open log file")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" Debug ", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"trace", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}
