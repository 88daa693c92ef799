package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hitoshi/clipshare/internal/model"
)

// PostgresClipboardRepo はPostgreSQLを使用したクリップボードリポジトリ。
type PostgresClipboardRepo struct {
	db *sql.DB
}

// NewPostgresClipboardRepo はPostgresClipboardRepoを生成する。
func NewPostgresClipboardRepo(db *sql.DB) *PostgresClipboardRepo {
	return &PostgresClipboardRepo{db: db}
}

// Exists は指定IDのクリップボードが存在するかを返す。
func (r *PostgresClipboardRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM clipboards WHERE id = $1)`,
		id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("クリップボードの存在チェックに失敗しました: %w", err)
	}
	return exists, nil
}

// Create はクリップボードを作成する。
// 作成時刻・更新時刻・最終アクセス時刻はDB側のnow()で採番し、
// clipboardに書き戻す。主キー制約に違反した場合は
// model.ErrDuplicateClipboardIDを返す。
func (r *PostgresClipboardRepo) Create(ctx context.Context, clipboard *model.Clipboard) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO clipboards (id) VALUES ($1)
		 RETURNING created_at, updated_at, last_accessed`,
		clipboard.ID,
	).Scan(&clipboard.CreatedAt, &clipboard.UpdatedAt, &clipboard.LastAccessed)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return model.ErrDuplicateClipboardID
		}
		return fmt.Errorf("クリップボードの作成に失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのクリップボードを取得する。見つからない場合はnilを返す。
func (r *PostgresClipboardRepo) FindByID(ctx context.Context, id string) (*model.Clipboard, error) {
	clipboard := &model.Clipboard{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, updated_at, last_accessed
		 FROM clipboards WHERE id = $1`,
		id,
	).Scan(&clipboard.ID, &clipboard.CreatedAt, &clipboard.UpdatedAt, &clipboard.LastAccessed)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("クリップボードの取得に失敗しました: %w", err)
	}
	return clipboard, nil
}

// TouchByID はlast_accessedを現在時刻に更新し、更新後の行を返す。
// 読み取りに伴う副作用はlast_accessedのみで、updated_atは変更しない。
// 単一のUPDATE文のため、取得とタッチの間に競合の余地はない。
func (r *PostgresClipboardRepo) TouchByID(ctx context.Context, id string) (*model.Clipboard, error) {
	clipboard := &model.Clipboard{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE clipboards SET last_accessed = now()
		 WHERE id = $1
		 RETURNING id, created_at, updated_at, last_accessed`,
		id,
	).Scan(&clipboard.ID, &clipboard.CreatedAt, &clipboard.UpdatedAt, &clipboard.LastAccessed)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("クリップボードのアクセス時刻更新に失敗しました: %w", err)
	}
	return clipboard, nil
}

// Delete はクリップボードを配下の全カードとともに削除する。
// 子カード→親クリップボードの順で明示的にDELETEし、
// 両方を単一トランザクションでコミットする。
func (r *PostgresClipboardRepo) Delete(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cards WHERE clipboard_id = $1`, id,
	); err != nil {
		return false, fmt.Errorf("カードのカスケード削除に失敗しました: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM clipboards WHERE id = $1`, id,
	)
	if err != nil {
		return false, fmt.Errorf("クリップボードの削除に失敗しました: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("削除のコミットに失敗しました: %w", err)
	}

	return rows > 0, nil
}

// DeleteIfIdleBefore は行ロックを取った上でアイドル条件を再チェックし、
// 条件を満たす場合のみカスケード削除する。候補列挙後にTouchByIDで
// アクセスされたクリップボードはここで除外される。FOR UPDATEにより
// 進行中のタッチとは直列化される。
func (r *PostgresClipboardRepo) DeleteIfIdleBefore(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM clipboards WHERE id = $1 AND last_accessed < $2 FOR UPDATE`,
		id, cutoff,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("アイドル条件の再チェックに失敗しました: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cards WHERE clipboard_id = $1`, id,
	); err != nil {
		return false, fmt.Errorf("カードのカスケード削除に失敗しました: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM clipboards WHERE id = $1`, id,
	); err != nil {
		return false, fmt.Errorf("クリップボードの削除に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("削除のコミットに失敗しました: %w", err)
	}
	return true, nil
}

// DeleteIfEmpty は行ロックを取った上で空条件を再チェックし、
// カードが1件もない場合のみクリップボードを削除する。
// 親行のFOR UPDATEはカード挿入が取る外部キーの共有ロックと競合するため、
// 進行中のカード作成とは直列化される。
func (r *PostgresClipboardRepo) DeleteIfEmpty(ctx context.Context, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM clipboards c
		 WHERE c.id = $1
		   AND NOT EXISTS (SELECT 1 FROM cards k WHERE k.clipboard_id = c.id)
		 FOR UPDATE`,
		id,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("空条件の再チェックに失敗しました: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM clipboards WHERE id = $1`, id,
	); err != nil {
		return false, fmt.Errorf("クリップボードの削除に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("削除のコミットに失敗しました: %w", err)
	}
	return true, nil
}

// ListIdleBefore はlast_accessedがcutoffより古いクリップボードを返す。
func (r *PostgresClipboardRepo) ListIdleBefore(ctx context.Context, cutoff time.Time) ([]*model.Clipboard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, created_at, updated_at, last_accessed
		 FROM clipboards
		 WHERE last_accessed < $1
		 ORDER BY last_accessed ASC`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("アイドルクリップボードの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanClipboards(rows)
}

// ListEmpty はカードを1件も持たないクリップボードを返す。
func (r *PostgresClipboardRepo) ListEmpty(ctx context.Context) ([]*model.Clipboard, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.created_at, c.updated_at, c.last_accessed
		 FROM clipboards c
		 WHERE NOT EXISTS (SELECT 1 FROM cards k WHERE k.clipboard_id = c.id)
		 ORDER BY c.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("空クリップボードの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	return scanClipboards(rows)
}

// scanClipboards は結果セットをクリップボードのスライスに変換する。
func scanClipboards(rows *sql.Rows) ([]*model.Clipboard, error) {
	var clipboards []*model.Clipboard
	for rows.Next() {
		clipboard := &model.Clipboard{}
		if err := rows.Scan(
			&clipboard.ID, &clipboard.CreatedAt, &clipboard.UpdatedAt, &clipboard.LastAccessed,
		); err != nil {
			return nil, fmt.Errorf("クリップボードの読み取りに失敗しました: %w", err)
		}
		clipboards = append(clipboards, clipboard)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("クリップボードの走査に失敗しました: %w", err)
	}
	return clipboards, nil
}

// compile-time interface check
var _ ClipboardRepository = (*PostgresClipboardRepo)(nil)
