package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestSetup_ReturnsJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "info")

	if l == nil {
		t.Fatal("expected non-nil logger")
	}

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected valid JSON log output, got error: %v\nraw output: %s", err, buf.String())
	}

	if entry["msg"] != "test message" {
		t.Errorf("msg = %q, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %q, want %q", entry["key"], "value")
	}
}

func TestSetup_IncludesTimeAndLevelFields(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "info")

	l.Warn("warning test")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if _, ok := entry["time"]; !ok {
		t.Error("expected 'time' field in JSON log output")
	}
	if entry["level"] != "WARN" {
		t.Errorf("level = %q, want %q", entry["level"], "WARN")
	}
}

func TestSetup_DebugLevel_EmitsDebugLogs(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "debug")

	l.Debug("debug message")

	if buf.Len() == 0 {
		t.Error("expected debug log to be emitted at debug level")
	}
}

func TestSetup_InfoLevel_SuppressesDebugLogs(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "info")

	l.Debug("debug message")

	if buf.Len() != 0 {
		t.Errorf("expected debug log to be suppressed at info level, got %s", buf.String())
	}
}

func TestSetup_UnknownLevel_FallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "verbose")

	l.Debug("debug message")
	if buf.Len() != 0 {
		t.Error("unknown level should behave like info and suppress debug")
	}

	l.Info("info message")
	if buf.Len() == 0 {
		t.Error("unknown level should behave like info and emit info")
	}
}

func TestSetup_MultipleAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, "info")

	l.Info("cleanup completed",
		slog.String("run_id", "r-123"),
		slog.String("clipboard_id", "aB3xY9"),
		slog.Int("idle_deleted", 3),
		slog.Int("empty_deleted", 1),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}

	if entry["run_id"] != "r-123" {
		t.Errorf("run_id = %q, want %q", entry["run_id"], "r-123")
	}
	if entry["clipboard_id"] != "aB3xY9" {
		t.Errorf("clipboard_id = %q, want %q", entry["clipboard_id"], "aB3xY9")
	}
	if entry["idle_deleted"] != float64(3) {
		t.Errorf("idle_deleted = %v, want %v", entry["idle_deleted"], 3)
	}
	if entry["empty_deleted"] != float64(1) {
		t.Errorf("empty_deleted = %v, want %v", entry["empty_deleted"], 1)
	}
}

func TestSetupDefault_SetsGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	SetupDefault(&buf, "info")

	slog.Default().Info("global test", slog.String("test_key", "test_val"))

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON: %v\nraw: %s", err, buf.String())
	}

	if entry["msg"] != "global test" {
		t.Errorf("msg = %q, want %q", entry["msg"], "global test")
	}
	if entry["test_key"] != "test_val" {
		t.Errorf("test_key = %q, want %q", entry["test_key"], "test_val")
	}
}
