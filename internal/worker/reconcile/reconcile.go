// Package reconcile はユーザー逆参照の整合ジョブを提供する。
// リポジトリ作成の途中で失敗し、ユーザーからの逆参照が欠落したリポジトリを
// 定期的に検出して逆参照を追加し直す。
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/coursegit/internal/metrics"
	"github.com/hitoshi/coursegit/internal/model"
)

// Lister は逆参照が欠落したリポジトリを列挙するインターフェース。
type Lister interface {
	ListUnlinked(ctx context.Context, limit int) ([]model.UnlinkedRepository, error)
}

// Linker はリポジトリのユーザー逆参照を冪等に保証するインターフェース。
type Linker interface {
	EnsureUserLink(ctx context.Context, repoName string) error
}

const (
	// DefaultBatchSize は1回の実行で処理する件数のデフォルト値。
	DefaultBatchSize = 100
	// DefaultInterval はStartに0以下の間隔が渡された場合の実行間隔。
	DefaultInterval = 10 * time.Minute
)

// Job は逆参照の整合ジョブ。
// 1回の実行で最大BatchSize件を処理し、何度実行しても結果は変わらない。
type Job struct {
	lister    Lister
	linker    Linker
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
	BatchSize int // 1回の実行で処理する最大件数（デフォルト: 100）
}

// NewJob は新しいJobを生成する。
func NewJob(lister Lister, linker Linker, collector metrics.MetricsCollector, logger *slog.Logger) *Job {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Job{
		lister:    lister,
		linker:    linker,
		metrics:   collector,
		logger:    logger,
		BatchSize: DefaultBatchSize,
	}
}

// Run は逆参照が欠落したリポジトリを列挙し、それぞれに逆参照を追加する。
// 個別の失敗はログに残して処理を続ける。列挙自体の失敗のみエラーを返す。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	limit := j.BatchSize
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	pending, err := j.lister.ListUnlinked(ctx, limit)
	if err != nil {
		j.logger.Error("整合対象リポジトリの取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("整合対象リポジトリの取得に失敗: %w", err)
	}

	var linked, failed int
	for _, u := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := j.linker.EnsureUserLink(ctx, u.RepoName); err != nil {
			failed++
			j.logger.Warn("ユーザー逆参照の追加に失敗しました",
				slog.String("repo_name", u.RepoName),
				slog.String("user_id", u.UserID),
				slog.String("error", err.Error()),
			)
			continue
		}
		linked++
	}

	j.metrics.RecordReconciled(linked, failed)
	j.logger.Info("整合ジョブが完了しました",
		slog.Int("pending_count", len(pending)),
		slog.Int("linked_count", linked),
		slog.Int("failed_count", failed),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}

// Start は起動直後に1回、その後interval毎にRunを実行する。ctxがキャンセルされると戻る。
// intervalが0以下の場合はDefaultIntervalを使う。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("整合ジョブを開始しました",
		slog.Duration("interval", interval),
		slog.Int("batch_size", j.BatchSize),
	)

	if err := j.Run(ctx); err != nil {
		j.logger.Error("整合ジョブの実行に失敗しました", slog.String("error", err.Error()))
	}

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("整合ジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("整合ジョブの実行に失敗しました", slog.String("error", err.Error()))
			}
		}
	}
}
