package model

import (
	"errors"
	"fmt"
)

// ErrDuplicateClipboardID はクリップボードIDの一意制約違反を表す。
// 生成済みIDの事前チェックとINSERTの間で競合が発生した場合に
// リポジトリ層が返し、サービス層はIDを再生成してリトライする。
var ErrDuplicateClipboardID = errors.New("clipboard id already exists")

// ErrClipboardGone はカード作成中に親クリップボードが消えていたことを表す。
// 存在チェックとINSERTの間にクリーンアップ等が親を削除した場合、
// 外部キー制約の違反として検出される。孤児カードは決して残らない。
var ErrClipboardGone = errors.New("clipboard no longer exists")

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, clipboard, card, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeClipboardNotFound = "CLIPBOARD_NOT_FOUND"
	ErrCodeCardNotFound      = "CARD_NOT_FOUND"
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidDays       = "INVALID_DAYS"
	ErrCodeStorageFailure    = "STORAGE_FAILURE"
)

// NewClipboardNotFoundError はクリップボード未検出エラーを生成する。
func NewClipboardNotFoundError(clipboardID string) *APIError {
	return &APIError{
		Code:     ErrCodeClipboardNotFound,
		Message:  fmt.Sprintf("指定されたクリップボードが見つかりません: %s", clipboardID),
		Category: "clipboard",
		Action:   "クリップボードIDを確認してください。期限切れで削除された可能性があります。",
	}
}

// NewCardNotFoundError はカード未検出エラーを生成する。
func NewCardNotFoundError(cardID int64) *APIError {
	return &APIError{
		Code:     ErrCodeCardNotFound,
		Message:  fmt.Sprintf("指定されたカードが見つかりません: %d", cardID),
		Category: "card",
		Action:   "カードIDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}

// NewInvalidDaysError は不正な保持日数エラーを生成する。
func NewInvalidDaysError(value string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDays,
		Message:  fmt.Sprintf("無効な日数指定です: %s", value),
		Category: "validation",
		Action:   "daysには1以上の整数を指定してください。",
	}
}

// NewStorageFailureError はストレージ障害エラーを生成する。
// 期待されるnot-foundとは区別し、永続化層のコミット失敗を表す。
func NewStorageFailureError() *APIError {
	return &APIError{
		Code:     ErrCodeStorageFailure,
		Message:  "ストレージへのアクセスに失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
