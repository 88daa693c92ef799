package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/clipshare/internal/model"
)

// PostgresCardRepo はPostgreSQLを使用したカードリポジトリ。
type PostgresCardRepo struct {
	db *sql.DB
}

// NewPostgresCardRepo はPostgresCardRepoを生成する。
func NewPostgresCardRepo(db *sql.DB) *PostgresCardRepo {
	return &PostgresCardRepo{db: db}
}

// Create はカードを作成し、BIGSERIALで採番されたIDとタイムスタンプを
// cardに書き戻す。カードの追加はクリップボードの構造変化のため、
// 同一トランザクションで親のupdated_atを更新する。
// 親クリップボードが存在しない場合は外部キー違反として検出し、
// model.ErrClipboardGoneを返す。カードは1行も残らない。
func (r *PostgresCardRepo) Create(ctx context.Context, card *model.Card) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO cards (clipboard_id, content, user_name)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at, updated_at`,
		card.ClipboardID, card.Content, nullString(card.UserName),
	).Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return model.ErrClipboardGone
		}
		return fmt.Errorf("カードの作成に失敗しました: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE clipboards SET updated_at = now() WHERE id = $1`,
		card.ClipboardID,
	); err != nil {
		return fmt.Errorf("クリップボードの更新時刻の反映に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("カード作成のコミットに失敗しました: %w", err)
	}
	return nil
}

// FindByID は指定IDのカードを取得する。見つからない場合はnilを返す。
func (r *PostgresCardRepo) FindByID(ctx context.Context, id int64) (*model.Card, error) {
	card := &model.Card{}
	var userName sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, clipboard_id, content, user_name, created_at, updated_at
		 FROM cards WHERE id = $1`,
		id,
	).Scan(&card.ID, &card.ClipboardID, &card.Content, &userName, &card.CreatedAt, &card.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カードの取得に失敗しました: %w", err)
	}

	card.UserName = nullStringValue(userName)
	return card, nil
}

// ListByClipboardID はクリップボード配下のカードを作成時刻の昇順で返す。
// タイムスタンプの分解能内で作成時刻が並んだ場合もIDの昇順で
// 順序が決定的になる。
func (r *PostgresCardRepo) ListByClipboardID(ctx context.Context, clipboardID string) ([]*model.Card, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, clipboard_id, content, user_name, created_at, updated_at
		 FROM cards
		 WHERE clipboard_id = $1
		 ORDER BY created_at ASC, id ASC`,
		clipboardID,
	)
	if err != nil {
		return nil, fmt.Errorf("カード一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var cards []*model.Card
	for rows.Next() {
		card := &model.Card{}
		var userName sql.NullString
		if err := rows.Scan(
			&card.ID, &card.ClipboardID, &card.Content, &userName, &card.CreatedAt, &card.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("カードの読み取りに失敗しました: %w", err)
		}
		card.UserName = nullStringValue(userName)
		cards = append(cards, card)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カード一覧の走査に失敗しました: %w", err)
	}
	return cards, nil
}

// UpdateContent はカードの内容を置き換え、updated_atを更新する。
// 見つからない場合はnilを返す。内容のみの編集のため
// 親クリップボードのタイムスタンプには触れない。
func (r *PostgresCardRepo) UpdateContent(ctx context.Context, id int64, content string) (*model.Card, error) {
	card := &model.Card{}
	var userName sql.NullString

	err := r.db.QueryRowContext(ctx,
		`UPDATE cards SET content = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING id, clipboard_id, content, user_name, created_at, updated_at`,
		id, content,
	).Scan(&card.ID, &card.ClipboardID, &card.Content, &userName, &card.CreatedAt, &card.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カードの更新に失敗しました: %w", err)
	}

	card.UserName = nullStringValue(userName)
	return card, nil
}

// Delete は指定IDのカードを削除する。カードの削除は親クリップボードの
// 構造変化のため、同一トランザクションで親のupdated_atを更新する。
func (r *PostgresCardRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	var clipboardID string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM cards WHERE id = $1 RETURNING clipboard_id`,
		id,
	).Scan(&clipboardID)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("カードの削除に失敗しました: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE clipboards SET updated_at = now() WHERE id = $1`,
		clipboardID,
	); err != nil {
		return false, fmt.Errorf("クリップボードの更新時刻の反映に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("カード削除のコミットに失敗しました: %w", err)
	}
	return true, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ CardRepository = (*PostgresCardRepo)(nil)
