package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/hitoshi/clipshare/internal/model"
)

// CleanupServiceInterface は管理ハンドラーが必要とする保持ポリシー操作のインターフェース。
type CleanupServiceInterface interface {
	// CleanupIdle は最終アクセスがthresholdより古いクリップボードを削除し件数を返す。
	CleanupIdle(ctx context.Context, threshold time.Duration) (int, error)
	// CleanupEmpty はカードを持たないクリップボードを削除し件数を返す。
	CleanupEmpty(ctx context.Context) (int, error)
}

// AdminHandler は保持ポリシーを手動実行する管理用HTTPハンドラー。
type AdminHandler struct {
	service CleanupServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service CleanupServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// cleanupIdleResponse はアイドルクリーンアップのレスポンス。
type cleanupIdleResponse struct {
	Message string `json:"message"`
	Days    int    `json:"days"`
	Deleted int    `json:"deleted"`
}

// cleanupEmptyResponse は空クリップボードクリーンアップのレスポンス。
type cleanupEmptyResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

// CleanupOld は指定日数以上アクセスのないクリップボードを削除する。
// daysクエリパラメータの省略時は7日を使う。
// POST /admin/cleanup/old?days=N
func (h *AdminHandler) CleanupOld(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidDaysError(raw))
			return
		}
		days = parsed
	}

	deleted, err := h.service.CleanupIdle(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cleanupIdleResponse{
		Message: "アイドルクリップボードの掃除が完了しました。",
		Days:    days,
		Deleted: deleted,
	})
}

// CleanupEmpty はカードを1件も持たないクリップボードを削除する。
// POST /admin/cleanup/empty
func (h *AdminHandler) CleanupEmpty(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.CleanupEmpty(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cleanupEmptyResponse{
		Message: "空クリップボードの掃除が完了しました。",
		Deleted: deleted,
	})
}
