package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/clipshare/internal/model"
)

// ClipboardServiceInterface はクリップボードハンドラーが必要とするサービスインターフェース。
type ClipboardServiceInterface interface {
	// Create は一意なIDを採番して新しいクリップボードを作成する。
	Create(ctx context.Context) (*model.Clipboard, error)
	// Get は指定IDのクリップボードを取得する。見つからない場合はnilを返す。
	Get(ctx context.Context, id string) (*model.Clipboard, error)
	// GetOrCreate はIDが解決できればそれを、できなければ新規作成したクリップボードを返す。
	GetOrCreate(ctx context.Context, id string) (*model.Clipboard, error)
	// Delete はクリップボードを配下のカードごと削除する。
	Delete(ctx context.Context, id string) (bool, error)
}

// CardLister はクリップボード詳細取得時にカード一覧を添付するためのインターフェース。
type CardLister interface {
	// List はクリップボード配下のカードを作成時刻の昇順で返す。
	List(ctx context.Context, clipboardID string) ([]*model.Card, error)
}

// ClipboardHandler はクリップボード管理のHTTPハンドラー。
type ClipboardHandler struct {
	service ClipboardServiceInterface
	cards   CardLister
}

// NewClipboardHandler はClipboardHandlerを生成する。
func NewClipboardHandler(service ClipboardServiceInterface, cards CardLister) *ClipboardHandler {
	return &ClipboardHandler{
		service: service,
		cards:   cards,
	}
}

// getOrCreateClipboardRequest はget-or-createリクエストのボディ。
// idは省略可能で、省略時は常に新規作成となる。
type getOrCreateClipboardRequest struct {
	ID string `json:"id"`
}

// createClipboardResponse はクリップボード作成レスポンス。
type createClipboardResponse struct {
	ID string `json:"id"`
}

// clipboardResponse はクリップボード情報のAPIレスポンス。
type clipboardResponse struct {
	ID           string         `json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastAccessed time.Time      `json:"last_accessed"`
	Cards        []cardResponse `json:"cards"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// CreateClipboard は新しいクリップボードを作成する。
// POST /clipboard/new
func (h *ClipboardHandler) CreateClipboard(w http.ResponseWriter, r *http.Request) {
	clipboard, err := h.service.Create(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(createClipboardResponse{ID: clipboard.ID})
}

// GetOrCreateClipboard は指定IDのクリップボードを取得し、
// IDの省略時・未知のID指定時は新規作成して返す。
// POST /clipboard
func (h *ClipboardHandler) GetOrCreateClipboard(w http.ResponseWriter, r *http.Request) {
	var req getOrCreateClipboardRequest
	// ボディは省略可能。空ボディや不正なJSONはID未指定として扱い、新規作成にフォールバックする
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		req.ID = ""
	}

	clipboard, err := h.service.GetOrCreate(r.Context(), req.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	cards, err := h.cards.List(r.Context(), clipboard.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toClipboardResponse(clipboard, cards))
}

// GetClipboard はクリップボード詳細をカード一覧つきで取得する。
// 取得の成功はlast_accessedを更新し、クリップボードの寿命を延ばす。
// GET /clipboard/:clipboard_id
func (h *ClipboardHandler) GetClipboard(w http.ResponseWriter, r *http.Request) {
	clipboardID := chi.URLParam(r, "clipboard_id")

	clipboard, err := h.service.Get(r.Context(), clipboardID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if clipboard == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewClipboardNotFoundError(clipboardID))
		return
	}

	cards, err := h.cards.List(r.Context(), clipboard.ID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toClipboardResponse(clipboard, cards))
}

// DeleteClipboard はクリップボードを配下の全カードとともに削除する。
// DELETE /clipboard/:clipboard_id
func (h *ClipboardHandler) DeleteClipboard(w http.ResponseWriter, r *http.Request) {
	clipboardID := chi.URLParam(r, "clipboard_id")

	deleted, err := h.service.Delete(r.Context(), clipboardID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !deleted {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewClipboardNotFoundError(clipboardID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// toClipboardResponse はmodel.ClipboardからAPIレスポンスに変換する。
func toClipboardResponse(clipboard *model.Clipboard, cards []*model.Card) clipboardResponse {
	resp := clipboardResponse{
		ID:           clipboard.ID,
		CreatedAt:    clipboard.CreatedAt,
		UpdatedAt:    clipboard.UpdatedAt,
		LastAccessed: clipboard.LastAccessed,
		Cards:        make([]cardResponse, 0, len(cards)),
	}
	for _, c := range cards {
		resp.Cards = append(resp.Cards, toCardResponse(c))
	}
	return resp
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeClipboardNotFound, model.ErrCodeCardNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidDays:
		return http.StatusBadRequest
	case model.ErrCodeStorageFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
