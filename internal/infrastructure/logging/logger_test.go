package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/TohokuUniv-HasegawaLab/OpenCampus/internal/infrastructure/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decoding %q: %v", buf.String(), err)
	}
	return entry
}

func TestNewWithWriter_DefaultFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "info", Format: "json"}, "1.2.0", &buf)

	log.Info("route executed", "route", "CHINA")

	entry := decodeLine(t, &buf)
	want := map[string]any{
		"msg":     "route executed",
		"service": ServiceName,
		"version": "1.2.0",
		"route":   "CHINA",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestNewWithWriter_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "debug", Format: "TEXT"}, "dev", &buf)

	log.Debug("scan window elapsed")

	out := buf.String()
	if !strings.Contains(out, "msg=\"scan window elapsed\"") || !strings.Contains(out, "service=routelight") {
		t.Errorf("text output = %q", out)
	}
}

func TestNewWithWriter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{Level: "warn"}, "dev", &buf)

	log.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	log.Warn("shown")
	if buf.Len() == 0 {
		t.Error("warn not logged at warn level")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(config.LoggingConfig{}, "dev", &buf)

	log.Component("readiness").With("device_id", "AA:01").Info("device ready")

	entry := decodeLine(t, &buf)
	if entry["component"] != "readiness" || entry["device_id"] != "AA:01" {
		t.Errorf("entry = %v", entry)
	}
	if entry["service"] != ServiceName {
		t.Errorf("child lost service field: %v", entry)
	}
}

func TestDefaultAndDiscard(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default() = nil")
	}
	log := Discard()
	if log.Enabled(context.Background(), slog.LevelWarn) {
		t.Error("Discard() enabled at warn")
	}
}
