package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/clipshare/internal/model"
)

// CardServiceInterface はカードハンドラーが必要とするサービスインターフェース。
type CardServiceInterface interface {
	// Create は既存クリップボードにカードを追加する。クリップボード未知ならnilを返す。
	Create(ctx context.Context, clipboardID, content, userName string) (*model.Card, error)
	// UpdateContent はカードの内容を置き換える。カード未知ならnilを返す。
	UpdateContent(ctx context.Context, cardID int64, content string) (*model.Card, error)
	// Delete はカードを削除する。削除したらtrue、未知ならfalseを返す。
	Delete(ctx context.Context, cardID int64) (bool, error)
}

// CardHandler はカード管理のHTTPハンドラー。
type CardHandler struct {
	service CardServiceInterface
}

// NewCardHandler はCardHandlerを生成する。
func NewCardHandler(service CardServiceInterface) *CardHandler {
	return &CardHandler{service: service}
}

// createCardRequest はカード作成リクエストのボディ。
type createCardRequest struct {
	Content  string `json:"content"`
	UserName string `json:"user_name"`
}

// updateCardRequest はカード更新リクエストのボディ。
type updateCardRequest struct {
	Content string `json:"content"`
}

// cardResponse はカード情報のAPIレスポンス。
type cardResponse struct {
	ID          int64     `json:"id"`
	ClipboardID string    `json:"clipboard_id"`
	Content     string    `json:"content"`
	UserName    string    `json:"user_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCard はクリップボードへのカード追加を処理する。
// POST /clipboard/:clipboard_id/cards
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	clipboardID := chi.URLParam(r, "clipboard_id")

	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	card, err := h.service.Create(r.Context(), clipboardID, req.Content, req.UserName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if card == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewClipboardNotFoundError(clipboardID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCardResponse(card))
}

// UpdateCard はカード内容の更新を処理する。
// PUT /cards/:card_id
func (h *CardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := parseCardID(w, r)
	if !ok {
		return
	}

	var req updateCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	card, err := h.service.UpdateContent(r.Context(), cardID, req.Content)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if card == nil {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewCardNotFoundError(cardID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toCardResponse(card))
}

// DeleteCard はカードの削除を処理する。
// DELETE /cards/:card_id
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, ok := parseCardID(w, r)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(r.Context(), cardID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !deleted {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewCardNotFoundError(cardID))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- ヘルパー関数 ---

// parseCardID はURLパラメータからカードIDを取り出す。
// 数値として解析できない場合は400を書き込み、falseを返す。
func parseCardID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "card_id")
	cardID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return 0, false
	}
	return cardID, true
}

// toCardResponse はmodel.CardからAPIレスポンスに変換する。
func toCardResponse(card *model.Card) cardResponse {
	return cardResponse{
		ID:          card.ID,
		ClipboardID: card.ClipboardID,
		Content:     card.Content,
		UserName:    card.UserName,
		CreatedAt:   card.CreatedAt,
		UpdatedAt:   card.UpdatedAt,
	}
}
