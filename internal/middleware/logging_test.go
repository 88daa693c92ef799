package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// mockMetricsRecorder はメトリクス記録呼び出しを捕捉するモック。
type mockMetricsRecorder struct {
	statuses  []int
	durations []time.Duration
}

func (m *mockMetricsRecorder) RecordHTTPStatus(statusCode int) {
	m.statuses = append(m.statuses, statusCode)
}

func (m *mockMetricsRecorder) RecordRequestDuration(duration time.Duration) {
	m.durations = append(m.durations, duration)
}

func TestLoggingMiddleware_LogsRequestDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/clipboard/abc123", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	if entry["method"] != "GET" {
		t.Errorf("method = %v, want GET", entry["method"])
	}
	if entry["path"] != "/clipboard/abc123" {
		t.Errorf("path = %v, want /clipboard/abc123", entry["path"])
	}
	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want %d", entry["status"], http.StatusOK)
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms field in log entry")
	}
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
}

func TestLoggingMiddleware_WarnLevelFor4xx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/clipboard/zzz999", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	if entry["level"] != "WARN" {
		t.Errorf("level = %v, want WARN", entry["level"])
	}
	if entry["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v, want %d", entry["status"], http.StatusNotFound)
	}
}

func TestLoggingMiddleware_ErrorLevelFor5xx(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/clipboard/abc123", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
}

func TestLoggingMiddleware_DefaultsTo200WhenWriteHeaderNotCalled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	mw := NewLoggingMiddleware(logger, nil)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WriteHeaderを呼ばずにボディだけ書く
		w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	if entry["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want %d", entry["status"], http.StatusOK)
	}
}

func TestLoggingMiddleware_RecordsMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	metrics := &mockMetricsRecorder{}
	mw := NewLoggingMiddleware(logger, metrics)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/clipboard/new", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if len(metrics.statuses) != 1 || metrics.statuses[0] != http.StatusCreated {
		t.Errorf("recorded statuses = %v, want [201]", metrics.statuses)
	}
	if len(metrics.durations) != 1 {
		t.Errorf("recorded durations count = %d, want 1", len(metrics.durations))
	}
}

func TestRecoveryMiddleware_ConvertsPanicTo500(t *testing.T) {
	mw := NewRecoveryMiddleware()

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/clipboard/abc123", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}
