// Package clipboard はクリップボードのライフサイクル管理機能を提供する。
// 作成・取得・削除に加え、2種類の独立した保持ポリシー
// （アイドルタイムアウト掃除と空クリップボード掃除）を実装する。
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/clipshare/internal/model"
	"github.com/hitoshi/clipshare/internal/repository"
	"github.com/hitoshi/clipshare/internal/shortid"
)

// MetricsRecorder はクリップボードサービスが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordClipboardCreated()
	RecordCleanupDeleted(policy string, count int)
}

// Service はクリップボードのドメインサービス。
type Service struct {
	repo      repository.ClipboardRepository
	generator *shortid.Generator
	logger    *slog.Logger
	metrics   MetricsRecorder // nilの場合は記録しない
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(repo repository.ClipboardRepository, generator *shortid.Generator, logger *slog.Logger, metrics MetricsRecorder) *Service {
	return &Service{
		repo:      repo,
		generator: generator,
		logger:    logger,
		metrics:   metrics,
	}
}

// Create は一意なIDを採番して新しいクリップボードを作成する。
// IDの一意性はストアの存在チェックで事前確認した上で、INSERT時の
// 主キー制約を最終的な裁定者とする。事前チェックをすり抜けた
// 同時作成の衝突はErrDuplicateClipboardIDとして検出し、
// IDを再生成してリトライする。
func (s *Service) Create(ctx context.Context) (*model.Clipboard, error) {
	for {
		id, err := s.generator.GenerateUnique(ctx, s.repo.Exists)
		if err != nil {
			return nil, fmt.Errorf("クリップボードIDの生成に失敗しました: %w", err)
		}

		clipboard := &model.Clipboard{ID: id}
		err = s.repo.Create(ctx, clipboard)
		if errors.Is(err, model.ErrDuplicateClipboardID) {
			s.logger.Warn("clipboard id collision on insert, retrying",
				slog.String("clipboard_id", id),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		if s.metrics != nil {
			s.metrics.RecordClipboardCreated()
		}
		return clipboard, nil
	}
}

// Get は指定IDのクリップボードを取得する。見つからない場合はnilを返す。
// 取得に成功した場合はlast_accessedを現在時刻に更新する。
// 読み取りの成功がクリップボードの寿命を延ばす唯一の経路であり、
// カード操作はアクセス時刻に影響しない。
func (s *Service) Get(ctx context.Context, id string) (*model.Clipboard, error) {
	return s.repo.TouchByID(ctx, id)
}

// GetOrCreate はIDが指定されていて解決できればそのクリップボードを返し
// （アクセス時刻の更新はGet経由で適用済み）、それ以外の場合は新しい
// クリップボードを作成する。解決できなかった指定IDは再利用も
// 形式検証もせず、完全に無視する。
func (s *Service) GetOrCreate(ctx context.Context, id string) (*model.Clipboard, error) {
	if id != "" {
		clipboard, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if clipboard != nil {
			return clipboard, nil
		}
	}
	return s.Create(ctx)
}

// Delete は指定IDのクリップボードを配下の全カードとともに削除する。
// 削除した場合はtrue、見つからない場合はfalseを返す（no-op）。
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	return s.repo.Delete(ctx, id)
}

// CleanupIdle はlast_accessedがnow - thresholdより古いすべての
// クリップボードを削除し、削除した件数を返す。
// 候補を先に列挙し、1件ずつ行ロック下で条件を再チェックしながら
// 削除するため、各カスケードは原子的だがバッチ全体は単一
// トランザクションではなく、走査中に排他ロックを持ち続けない。
func (s *Service) CleanupIdle(ctx context.Context, threshold time.Duration) (int, error) {
	cutoff := time.Now().Add(-threshold)

	candidates, err := s.repo.ListIdleBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, c := range candidates {
		deleted, err := s.repo.DeleteIfIdleBefore(ctx, c.ID, cutoff)
		if err != nil {
			return count, fmt.Errorf("アイドルクリップボードの削除に失敗しました: %w", err)
		}
		if deleted {
			count++
		}
	}

	if s.metrics != nil && count > 0 {
		s.metrics.RecordCleanupDeleted("idle", count)
	}
	return count, nil
}

// CleanupEmpty はカードを1件も持たないすべてのクリップボードを削除し、
// 削除した件数を返す。候補列挙後にカードが追加されたクリップボードは
// 再チェックで除外される。
func (s *Service) CleanupEmpty(ctx context.Context) (int, error) {
	candidates, err := s.repo.ListEmpty(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, c := range candidates {
		deleted, err := s.repo.DeleteIfEmpty(ctx, c.ID)
		if err != nil {
			return count, fmt.Errorf("空クリップボードの削除に失敗しました: %w", err)
		}
		if deleted {
			count++
		}
	}

	if s.metrics != nil && count > 0 {
		s.metrics.RecordCleanupDeleted("empty", count)
	}
	return count, nil
}

// ListIdleCandidates はアイドルタイムアウト掃除の対象となる
// クリップボードを削除せずに返す。ドライラン用の読み取り専用操作。
func (s *Service) ListIdleCandidates(ctx context.Context, threshold time.Duration) ([]*model.Clipboard, error) {
	return s.repo.ListIdleBefore(ctx, time.Now().Add(-threshold))
}

// ListEmptyCandidates は空クリップボード掃除の対象となる
// クリップボードを削除せずに返す。ドライラン用の読み取り専用操作。
func (s *Service) ListEmptyCandidates(ctx context.Context) ([]*model.Clipboard, error) {
	return s.repo.ListEmpty(ctx)
}
