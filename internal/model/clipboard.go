// Package model はドメインモデルを定義する。
package model

import "time"

// Clipboard は共有クリップボードを表す。
// IDが唯一のアクセス資格情報であり、IDを知るすべてのクライアントが
// フルアクセスを持つ。
type Clipboard struct {
	ID           string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastAccessed time.Time
	Cards        []*Card
}

// Card はクリップボード内の1件のテキストカードを表す。
// IDはストア全体で一意であり、削除後も再利用されない。
type Card struct {
	ID          int64
	ClipboardID string
	Content     string
	UserName    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
