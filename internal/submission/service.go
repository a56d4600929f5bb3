// Package submission は提出の作成とログストリームIDの払い出しを提供する。
package submission

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/coursegit/internal/idgen"
	"github.com/hitoshi/coursegit/internal/metrics"
	"github.com/hitoshi/coursegit/internal/model"
	"github.com/hitoshi/coursegit/internal/repository"
)

// CreateCommand は提出作成の入力。
type CreateCommand struct {
	RepoName  string
	CommitSHA string
}

// CreateResult は提出作成の結果。
type CreateResult struct {
	LogstreamID  string
	LogstreamURL string
	TesterURL    string
	WSURL        string // 未設定の場合は空
}

// Config はServiceに注入する設定。生成後は変更しない。
type Config struct {
	LogstreamBaseURL string
	WSURL            string
}

// Service は提出作成のサービス層。
// リポジトリ解決 → ID払い出し → 保存の順に処理する。同一コミットの再提出も別の提出として扱う。
type Service struct {
	ids            idgen.Generator
	repoRepo       repository.RepositoryRepository
	submissionRepo repository.SubmissionRepository
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	cfg            Config
	now            func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	ids idgen.Generator,
	repoRepo repository.RepositoryRepository,
	submissionRepo repository.SubmissionRepository,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		ids:            ids,
		repoRepo:       repoRepo,
		submissionRepo: submissionRepo,
		metrics:        collector,
		logger:         logger,
		cfg:            cfg,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// CreateSubmission はリポジトリに対する提出を作成し、ログストリームのアドレスを返す。
// ログストリーム自体はここでは作成しない。
func (s *Service) CreateSubmission(ctx context.Context, cmd CreateCommand) (*CreateResult, error) {
	const op = model.OpCreateSubmission

	repo, err := s.repoRepo.FindByName(ctx, cmd.RepoName)
	if err != nil {
		s.logger.Error("リポジトリの取得に失敗しました",
			slog.String("repo_name", cmd.RepoName),
			slog.String("error", err.Error()),
		)
		return nil, model.NewOpError(op, model.KindDatabase, cmd.RepoName, err)
	}
	if repo == nil {
		return nil, model.NewOpError(op, model.KindNotFound, cmd.RepoName, nil)
	}

	id := s.ids.NewSubmissionID()
	submission := &model.Submission{
		RepoName:      cmd.RepoName,
		CommitSHA:     cmd.CommitSHA,
		LogstreamID:   id,
		LogstreamURL:  LogstreamURL(s.cfg.LogstreamBaseURL, id),
		Relationships: []model.Relationship{},
		CreatedAt:     s.now(),
	}

	if err := s.submissionRepo.Insert(ctx, submission); err != nil {
		s.logger.Error("提出の保存に失敗しました",
			slog.String("repo_name", cmd.RepoName),
			slog.String("logstream_id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.NewOpError(op, model.KindDatabase, cmd.RepoName, err)
	}

	s.metrics.RecordSubmissionCreated()
	s.logger.Info("提出を作成しました",
		slog.String("repo_name", cmd.RepoName),
		slog.String("commit_sha", cmd.CommitSHA),
		slog.String("logstream_id", id),
	)

	return &CreateResult{
		LogstreamID:  id,
		LogstreamURL: submission.LogstreamURL,
		TesterURL:    repo.TesterURL,
		WSURL:        s.cfg.WSURL,
	}, nil
}

// ListSubmissions はリポジトリの提出一覧を新しい順に返す。
func (s *Service) ListSubmissions(ctx context.Context, repoName string) ([]*model.Submission, error) {
	const op = model.OpListSubmissions

	repo, err := s.repoRepo.FindByName(ctx, repoName)
	if err != nil {
		return nil, model.NewOpError(op, model.KindDatabase, repoName, err)
	}
	if repo == nil {
		return nil, model.NewOpError(op, model.KindNotFound, repoName, nil)
	}

	submissions, err := s.submissionRepo.ListByRepoName(ctx, repoName)
	if err != nil {
		s.logger.Error("提出一覧の取得に失敗しました",
			slog.String("repo_name", repoName),
			slog.String("error", err.Error()),
		)
		return nil, model.NewOpError(op, model.KindDatabase, repoName, err)
	}
	if submissions == nil {
		submissions = []*model.Submission{}
	}
	return submissions, nil
}

// LogstreamURL はベースアドレスと提出IDを連結したログストリームのアドレスを返す。
// ベースアドレス末尾の"/"は取り除く。
func LogstreamURL(base, id string) string {
	return strings.TrimRight(base, "/") + "/" + id
}
