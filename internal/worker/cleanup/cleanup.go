// Package cleanup はクリップボードの保持ポリシーを定期実行するジョブを提供する。
// アイドルタイムアウト掃除（最終アクセスが閾値より古いクリップボードの削除）と
// 空クリップボード掃除（カードを持たないクリップボードの削除）の2つの独立した
// ポリシーを同じ実行サイクルで適用する。
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RetentionService は保持ポリシーの実体操作を提供するインターフェース。
// clipboard.Serviceが満たす。
type RetentionService interface {
	// CleanupIdle は最終アクセスがthresholdより古いクリップボードを削除し件数を返す。
	CleanupIdle(ctx context.Context, threshold time.Duration) (int, error)
	// CleanupEmpty はカードを持たないクリップボードを削除し件数を返す。
	CleanupEmpty(ctx context.Context) (int, error)
}

// Job は保持ポリシーの定期実行ジョブ。
// 各実行は冪等で、削除対象がない場合もエラーにならない。
type Job struct {
	service       RetentionService
	logger        *slog.Logger
	IdleThreshold time.Duration // アイドルタイムアウトの閾値（デフォルト: 7日）
}

// NewJob は新しいJobを生成する。デフォルトのアイドル閾値は7日。
func NewJob(service RetentionService, logger *slog.Logger) *Job {
	return &Job{
		service:       service,
		logger:        logger,
		IdleThreshold: 7 * 24 * time.Hour,
	}
}

// Run は両方の保持ポリシーを順に適用する。
// 片方のポリシーが失敗してももう片方は実行し、最初のエラーを返す。
// 実行ごとにrun_idを採番し、ログで追跡できるようにする。
func (j *Job) Run(ctx context.Context) error {
	runID := uuid.NewString()
	start := time.Now()

	j.logger.Info("保持ポリシーの実行を開始します",
		slog.String("run_id", runID),
		slog.Duration("idle_threshold", j.IdleThreshold),
	)

	var firstErr error

	idleDeleted, err := j.service.CleanupIdle(ctx, j.IdleThreshold)
	if err != nil {
		j.logger.Error("アイドルクリップボード掃除に失敗しました",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
			slog.Int("deleted_before_failure", idleDeleted),
		)
		firstErr = err
	}

	emptyDeleted, err := j.service.CleanupEmpty(ctx)
	if err != nil {
		j.logger.Error("空クリップボード掃除に失敗しました",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
			slog.Int("deleted_before_failure", emptyDeleted),
		)
		if firstErr == nil {
			firstErr = err
		}
	}

	duration := time.Since(start)
	j.logger.Info("保持ポリシーの実行が完了しました",
		slog.String("run_id", runID),
		slog.Int("idle_deleted", idleDeleted),
		slog.Int("empty_deleted", emptyDeleted),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return firstErr
}
