package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// --- モック定義 ---

// mockCleanupService はCleanupServiceInterfaceのモック実装。
type mockCleanupService struct {
	cleanupIdleFn  func(ctx context.Context, threshold time.Duration) (int, error)
	cleanupEmptyFn func(ctx context.Context) (int, error)
}

func (m *mockCleanupService) CleanupIdle(ctx context.Context, threshold time.Duration) (int, error) {
	if m.cleanupIdleFn != nil {
		return m.cleanupIdleFn(ctx, threshold)
	}
	return 0, nil
}

func (m *mockCleanupService) CleanupEmpty(ctx context.Context) (int, error) {
	if m.cleanupEmptyFn != nil {
		return m.cleanupEmptyFn(ctx)
	}
	return 0, nil
}

// --- POST /admin/cleanup/old テスト ---

func TestAdminHandler_CleanupOld_DefaultDays(t *testing.T) {
	svc := &mockCleanupService{
		cleanupIdleFn: func(ctx context.Context, threshold time.Duration) (int, error) {
			if threshold != 7*24*time.Hour {
				t.Errorf("threshold = %v, want %v", threshold, 7*24*time.Hour)
			}
			return 3, nil
		},
	}

	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/admin/cleanup/old", nil)
	w := httptest.NewRecorder()

	h.CleanupOld(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["days"] != float64(7) {
		t.Errorf("days = %v, want 7", result["days"])
	}
	if result["deleted"] != float64(3) {
		t.Errorf("deleted = %v, want 3", result["deleted"])
	}
}

func TestAdminHandler_CleanupOld_CustomDays(t *testing.T) {
	svc := &mockCleanupService{
		cleanupIdleFn: func(ctx context.Context, threshold time.Duration) (int, error) {
			if threshold != 30*24*time.Hour {
				t.Errorf("threshold = %v, want %v", threshold, 30*24*time.Hour)
			}
			return 10, nil
		},
	}

	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/admin/cleanup/old?days=30", nil)
	w := httptest.NewRecorder()

	h.CleanupOld(w, req)

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["days"] != float64(30) {
		t.Errorf("days = %v, want 30", result["days"])
	}
}

func TestAdminHandler_CleanupOld_InvalidDays_Returns400(t *testing.T) {
	tests := []struct {
		name string
		days string
	}{
		{"数値でない", "abc"},
		{"ゼロ", "0"},
		{"負の値", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockCleanupService{
				cleanupIdleFn: func(ctx context.Context, threshold time.Duration) (int, error) {
					called = true
					return 0, nil
				},
			}

			h := NewAdminHandler(svc)

			req := httptest.NewRequest(http.MethodPost, "/admin/cleanup/old?days="+tt.days, nil)
			w := httptest.NewRecorder()

			h.CleanupOld(w, req)

			if w.Result().StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
			}
			if called {
				t.Error("cleanup should not run for invalid days")
			}

			errResp := parseAPIErrorResponse(t, w)
			if errResp["code"] != "INVALID_DAYS" {
				t.Errorf("code = %q, want INVALID_DAYS", errResp["code"])
			}
		})
	}
}

func TestAdminHandler_CleanupOld_ServiceError_Returns500(t *testing.T) {
	svc := &mockCleanupService{
		cleanupIdleFn: func(ctx context.Context, threshold time.Duration) (int, error) {
			return 0, errors.New("db down")
		},
	}

	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/admin/cleanup/old", nil)
	w := httptest.NewRecorder()

	h.CleanupOld(w, req)

	if w.Result().StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusInternalServerError)
	}
}

// --- POST /admin/cleanup/empty テスト ---

func TestAdminHandler_CleanupEmpty_Success(t *testing.T) {
	svc := &mockCleanupService{
		cleanupEmptyFn: func(ctx context.Context) (int, error) {
			return 5, nil
		},
	}

	h := NewAdminHandler(svc)

	req := httptest.NewRequest(http.MethodPost, "/admin/cleanup/empty", nil)
	w := httptest.NewRecorder()

	h.CleanupEmpty(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["deleted"] != float64(5) {
		t.Errorf("deleted = %v, want 5", result["deleted"])
	}
}
