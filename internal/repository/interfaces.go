// Package repository はデータ永続化のインターフェースを定義する。
// 永続化されたタイムスタンプを変更できるのはこの層だけであり、
// どのフィールドをいつ更新するかのルールもここに集約される:
// last_accessedはIDによる読み取り成功時のみ、クリップボードの
// updated_atはカードの追加・削除という構造変化時のみ、カードの
// updated_atは内容更新時のみ更新される。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/clipshare/internal/model"
)

// ClipboardRepository はクリップボードデータの永続化インターフェース。
type ClipboardRepository interface {
	// Exists は指定IDのクリップボードが存在するかを返す。
	// ID生成時の事前チェックに使用する。最終的な一意性はINSERT時の
	// 主キー制約が保証する。
	Exists(ctx context.Context, id string) (bool, error)

	// Create はクリップボードを作成し、DB側で採番されたタイムスタンプを
	// clipboardに書き戻す。IDが衝突した場合は
	// model.ErrDuplicateClipboardIDを返す。
	Create(ctx context.Context, clipboard *model.Clipboard) error

	// FindByID は指定IDのクリップボードを取得する。見つからない場合はnilを返す。
	// タイムスタンプは一切変更しない純粋な読み取り。
	FindByID(ctx context.Context, id string) (*model.Clipboard, error)

	// TouchByID は指定IDのクリップボードのlast_accessedを現在時刻に
	// 更新し、更新後の行を返す。見つからない場合はnilを返す。
	// 更新と読み取りは単一のUPDATE ... RETURNING文で行われる。
	TouchByID(ctx context.Context, id string) (*model.Clipboard, error)

	// Delete は指定IDのクリップボードを配下の全カードとともに削除する。
	// カスケードは単一トランザクション内の明示的な2段階DELETEで行われ、
	// 全削除か無削除かのいずれかになる。削除した場合はtrueを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// DeleteIfIdleBefore はlast_accessedがcutoffより古い場合に限り、
	// クリップボードをカスケード削除する。候補列挙から削除までの間に
	// アクセスされたクリップボードは行ロック下の再チェックで除外される。
	// 削除した場合はtrueを返す。
	DeleteIfIdleBefore(ctx context.Context, id string, cutoff time.Time) (bool, error)

	// DeleteIfEmpty はカードを1件も持たない場合に限り、クリップボードを
	// 削除する。候補列挙から削除までの間にカードが追加された
	// クリップボードは行ロック下の再チェックで除外される。
	// 削除した場合はtrueを返す。
	DeleteIfEmpty(ctx context.Context, id string) (bool, error)

	// ListIdleBefore はlast_accessedがcutoffより古いクリップボードを返す。
	// アイドルタイムアウト掃除の候補列挙とドライラン表示に使用する。
	ListIdleBefore(ctx context.Context, cutoff time.Time) ([]*model.Clipboard, error)

	// ListEmpty はカードを1件も持たないクリップボードを返す。
	// 空クリップボード掃除の候補列挙とドライラン表示に使用する。
	ListEmpty(ctx context.Context) ([]*model.Clipboard, error)
}

// CardRepository はカードデータの永続化インターフェース。
type CardRepository interface {
	// Create はカードを作成し、採番されたIDとタイムスタンプをcardに
	// 書き戻す。同一トランザクションで親クリップボードのupdated_atを
	// 更新する。親が既に削除されていた場合はmodel.ErrClipboardGoneを返す。
	Create(ctx context.Context, card *model.Card) error

	// FindByID は指定IDのカードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Card, error)

	// ListByClipboardID はクリップボード配下のカードを作成時刻の昇順で返す。
	// 作成時刻が同一の場合はIDの昇順で安定化する。
	// クリップボードが存在しない場合も空スライスを返す。
	ListByClipboardID(ctx context.Context, clipboardID string) ([]*model.Card, error)

	// UpdateContent はカードの内容を置き換えupdated_atを更新し、
	// 更新後の行を返す。見つからない場合はnilを返す。
	// 内容のみの編集のため親クリップボードのupdated_atは変更しない。
	UpdateContent(ctx context.Context, id int64, content string) (*model.Card, error)

	// Delete は指定IDのカードを削除する。同一トランザクションで
	// 親クリップボードのupdated_atを更新する。削除した場合はtrueを返す。
	Delete(ctx context.Context, id int64) (bool, error)
}
