package handler

import (
	"context"
	"encoding/json"
	"net/http"
)

// HealthChecker はヘルスチェックで使うDB疎通確認のインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// SystemHandler はサービス情報とヘルスチェックのHTTPハンドラー。
type SystemHandler struct {
	health HealthChecker
}

// NewSystemHandler はSystemHandlerを生成する。
func NewSystemHandler(health HealthChecker) *SystemHandler {
	return &SystemHandler{health: health}
}

// serviceInfoResponse はルートエンドポイントのレスポンス。
type serviceInfoResponse struct {
	Service   string            `json:"service"`
	Endpoints map[string]string `json:"endpoints"`
}

// Root はサービス情報とエンドポイント一覧を返す。
// GET /
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(serviceInfoResponse{
		Service: "clipshare",
		Endpoints: map[string]string{
			"create_clipboard":        "POST /clipboard/new",
			"get_or_create_clipboard": "POST /clipboard",
			"get_clipboard":           "GET /clipboard/{clipboard_id}",
			"delete_clipboard":        "DELETE /clipboard/{clipboard_id}",
			"create_card":             "POST /clipboard/{clipboard_id}/cards",
			"update_card":             "PUT /cards/{card_id}",
			"delete_card":             "DELETE /cards/{card_id}",
			"health":                  "GET /health",
		},
	})
}

// Health はDB疎通を確認し、サービスの稼働状態を返す。
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := h.health.PingContext(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
