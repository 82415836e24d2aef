package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, output *bytes.Buffer) []map[string]interface{} {
	t.Helper()

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(output.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name      string
		level     string
		wantLevel []string
	}{
		{"debug logs everything", "debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info drops debug", "info", []string{"INFO", "WARN", "ERROR"}},
		{"warning alias", "warning", []string{"WARN", "ERROR"}},
		{"error only", "error", []string{"ERROR"}},
		{"unknown defaults to info", "verbose", []string{"INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := &bytes.Buffer{}
			logger, err := New(&Config{Level: tt.level, Format: "json", writer: output})
			require.NoError(t, err)

			logger.Debug("Job lookup", slog.Int64("job_id", 1))
			logger.Info("Job created", slog.Int64("job_id", 1))
			logger.Warn("Session time exceeds booked duration", slog.Int64("job_id", 1))
			logger.Error("Failed to publish event", slog.Int64("job_id", 1))

			entries := decodeLines(t, output)
			levels := make([]string, len(entries))
			for i, e := range entries {
				levels[i] = e["level"].(string)
				assert.Equal(t, float64(1), e["job_id"])
			}
			assert.Equal(t, tt.wantLevel, levels)
		})
	}
}

func TestNew_ConsoleFormat(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Level: "info", Format: "console", NoColor: true, writer: output})
	require.NoError(t, err)

	logger.Info("Job accepted", slog.Int64("translator_id", 7))

	line := output.String()
	assert.Contains(t, line, "INF")
	assert.Contains(t, line, "Job accepted")
	assert.Contains(t, line, "translator_id=7")
	assert.NotContains(t, line, "\x1b[")
}

func TestNew_SourceLocation(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Format: "json", EnableSource: true, writer: output})
	require.NoError(t, err)

	logger.Info("Job reopened")

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	source, ok := entries[0]["source"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, source, "file")
	assert.Contains(t, source, "line")
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "booking.log")

	logger, err := New(&Config{Level: "info", Format: "console", Output: path, TimeFormat: time.TimeOnly})
	require.NoError(t, err)

	logger.Info("Notification dispatched", slog.String("channel", "push"))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Notification dispatched")
	assert.NotContains(t, string(data), "\x1b[", "file output is never colored")
}

func TestNew_FileOutputError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := New(&Config{Output: filepath.Join(blocker, "booking.log")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create log directory")
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	require.NotNil(t, logger)
	assert.NotNil(t, logger.Logger)
	assert.NoError(t, logger.Close())
}

func TestAudit(t *testing.T) {
	output := &bytes.Buffer{}
	logger, err := New(&Config{Format: "json", writer: output})
	require.NoError(t, err)

	logger.Info("Booking updated by admin",
		Audit(
			slog.Int64("job_id", 42),
			slog.String("field", "status"),
		),
		slog.Int64("admin_id", 900),
	)

	entries := decodeLines(t, output)
	require.Len(t, entries, 1)
	audit, ok := entries[0][AuditGroup].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), audit["job_id"])
	assert.Equal(t, "status", audit["field"])
	assert.Equal(t, float64(900), entries[0]["admin_id"])
}
