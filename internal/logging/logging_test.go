package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew_WritesJSONLinesAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "repeater.log")

	logger, closeFn, err := New(Options{Path: path, Level: "warn", Fields: map[string]string{"app": "repeater"}})
	require.NoError(t, err)

	logger.Named("api").Info("dropped")
	logger.Named("api").Warn("kept", zap.String("path", "/cards"))
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "api", entry["logger"])
	assert.Equal(t, "/cards", entry["path"])
	assert.Equal(t, "repeater", entry["app"])
	assert.Contains(t, entry, "ts")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{" WARN ", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Fatalf("ParseLevel(chatty) should fail")
	}
}

func TestNew_RejectsEmptyPath(t *testing.T) {
	if _, _, err := New(Options{}); err == nil {
		t.Fatalf("New with empty path should fail")
	}
}

func TestRedacted(t *testing.T) {
	f := Redacted("password", "hunter2")
	assert.Equal(t, "[REDACTED:7]", f.String)
}
