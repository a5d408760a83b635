package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.WithModule("catalog").WithField("count", 12).Info("catalog loaded")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if entry["message"] != "catalog loaded" {
		t.Errorf("message = %v, want %q", entry["message"], "catalog loaded")
	}
	if entry["level"] != "info" {
		t.Errorf("level = %v, want %q", entry["level"], "info")
	}
	if entry["module"] != "catalog" {
		t.Errorf("module = %v, want %q", entry["module"], "catalog")
	}
	if _, ok := entry["timestamp"]; !ok {
		t.Error("missing timestamp key")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("warn", &buf)

	log.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info record emitted at warn level: %s", buf.String())
	}

	log.Warn("should appear")
	if buf.Len() == 0 {
		t.Error("warn record was dropped")
	}
}

func TestLoggerWarnLevelName(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("debug", &buf)

	log.Warn("caution")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if entry["level"] != "warning" {
		t.Errorf("level = %v, want %q", entry["level"], "warning")
	}
}
