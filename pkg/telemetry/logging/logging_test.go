package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"info", slog.LevelInfo, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"verbose", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.level {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.name, got, tt.level)
		}
	}
}

func TestSetupJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := Setup(Config{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}

	logger.Info("hello", "component", "test")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output not JSON: %v\n%s", err, buf.String())
	}
	if line["msg"] != "hello" || line["component"] != "test" {
		t.Errorf("line = %v", line)
	}
}

func TestSetupRejectsBadConfig(t *testing.T) {
	if _, err := Setup(Config{Level: "nope", Writer: &bytes.Buffer{}}); err == nil {
		t.Error("bad level accepted")
	}
	if _, err := Setup(Config{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Error("bad format accepted")
	}
}
