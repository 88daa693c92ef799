// Package card はクリップボード内のカード管理機能を提供する。
package card

import (
	"context"
	"errors"

	"github.com/hitoshi/clipshare/internal/model"
	"github.com/hitoshi/clipshare/internal/repository"
)

// MetricsRecorder はカードサービスが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordCardCreated()
}

// Service はカードのドメインサービス。
// どのカード操作も親クリップボードのlast_accessedを更新しない。
// アクセス時刻の更新はクリップボードのID取得のみが行う。
type Service struct {
	cardRepo      repository.CardRepository
	clipboardRepo repository.ClipboardRepository
	metrics       MetricsRecorder // nilの場合は記録しない
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(cardRepo repository.CardRepository, clipboardRepo repository.ClipboardRepository, metrics MetricsRecorder) *Service {
	return &Service{
		cardRepo:      cardRepo,
		clipboardRepo: clipboardRepo,
		metrics:       metrics,
	}
}

// Create は既存クリップボードに新しいカードを追加する。
// クリップボードが存在しない場合はエラーではなくnilを返す。
// 存在チェックの直後にクリーンアップ等がクリップボードを削除した場合も、
// 外部キー違反をnilに変換する。どちらの経路でもカードは1行も残らない。
func (s *Service) Create(ctx context.Context, clipboardID, content, userName string) (*model.Card, error) {
	exists, err := s.clipboardRepo.Exists(ctx, clipboardID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	card := &model.Card{
		ClipboardID: clipboardID,
		Content:     content,
		UserName:    userName,
	}
	err = s.cardRepo.Create(ctx, card)
	if errors.Is(err, model.ErrClipboardGone) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordCardCreated()
	}
	return card, nil
}

// List はクリップボード配下のカードを作成時刻の昇順で返す。
// カードがない場合もクリップボード自体が未知の場合も空スライスを返す。
// 両者の区別が必要な呼び出し側はクリップボードのGetで確認する。
func (s *Service) List(ctx context.Context, clipboardID string) ([]*model.Card, error) {
	return s.cardRepo.ListByClipboardID(ctx, clipboardID)
}

// UpdateContent はカードの内容を置き換え、updated_atを更新する。
// カードが存在しない場合はnilを返す。
func (s *Service) UpdateContent(ctx context.Context, cardID int64, content string) (*model.Card, error) {
	return s.cardRepo.UpdateContent(ctx, cardID, content)
}

// Delete は指定IDのカードを削除する。
// 削除した場合はtrue、見つからない場合はfalseを返す。
func (s *Service) Delete(ctx context.Context, cardID int64) (bool, error) {
	return s.cardRepo.Delete(ctx, cardID)
}
