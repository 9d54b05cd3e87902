package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, Options{Level: "info", Format: "json"})
	log.Info("unit completed", "unit", 3)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON: %v, output: %s", err, buf.String())
	}
	if entry["msg"] != "unit completed" || entry["unit"] != float64(3) {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestNewWriterFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, Options{Level: "warn"})
	log.Info("hidden")
	log.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewFileOutputCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".cellsim", "logs", "cellsim.log")
	log, closer, err := New(Options{Level: "debug", Output: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Debug("run started", "run_id", "abc")
	if err := closer(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "run_id=abc") {
		t.Fatalf("expected text log line, got %q", data)
	}
}

func TestNewStderrHasNoopCloser(t *testing.T) {
	_, closer, err := New(Options{Output: "stderr"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := closer(); err != nil {
		t.Fatalf("closer: %v", err)
	}
}
