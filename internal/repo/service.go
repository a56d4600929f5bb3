// Package repo は演習リポジトリの作成・取得・更新のドメインロジックを提供する。
package repo

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/coursegit/internal/gitserver"
	"github.com/hitoshi/coursegit/internal/idgen"
	"github.com/hitoshi/coursegit/internal/metrics"
	"github.com/hitoshi/coursegit/internal/model"
	"github.com/hitoshi/coursegit/internal/repository"
	"github.com/hitoshi/coursegit/internal/tester"
)

// CreateCommand はリポジトリ作成の入力。
type CreateCommand struct {
	Template                  string // コースslug
	UserID                    string
	ExpectedPracticeFrequency model.ExpectedPracticeFrequency
	IsReminderEnabled         bool
}

// CreateResult はリポジトリ作成の結果。
type CreateResult struct {
	RepoName     string
	RepoTemplate string
}

// Config はServiceに注入する設定。生成後は変更しない。
type Config struct {
	Testers *tester.Table
}

// Service はリポジトリ作成のサービス層。
// ID生成 → コース解決 → Gitサーバーでの作成 → 保存 → ユーザーへの逆参照追加の順に処理する。
// 途中で失敗した場合も補償処理は行わない。
type Service struct {
	ids         idgen.Generator
	courseRepo  repository.CourseRepository
	repoRepo    repository.RepositoryRepository
	userRepo    repository.UserRepository
	provisioner gitserver.Provisioner
	metrics     metrics.MetricsCollector
	logger      *slog.Logger
	cfg         Config
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	ids idgen.Generator,
	courseRepo repository.CourseRepository,
	repoRepo repository.RepositoryRepository,
	userRepo repository.UserRepository,
	provisioner gitserver.Provisioner,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Testers == nil {
		cfg.Testers = tester.NewTable("", nil)
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		ids:         ids,
		courseRepo:  courseRepo,
		repoRepo:    repoRepo,
		userRepo:    userRepo,
		provisioner: provisioner,
		metrics:     collector,
		logger:      logger,
		cfg:         cfg,
	}
}

// CreateRepository はテンプレートから演習リポジトリを作成する。
// テンプレートが存在しない場合はGitサーバーを呼び出さずにNotFoundを返す。
func (s *Service) CreateRepository(ctx context.Context, cmd CreateCommand) (*CreateResult, error) {
	// 1. ID生成
	repoName := s.ids.NewRepoID()
	log := s.logger.With(
		slog.String("repo_name", repoName),
		slog.String("template", cmd.Template),
		slog.String("user_id", cmd.UserID),
	)

	// 2. コース解決（Gitサーバー呼び出しより前）
	if _, err := uuid.Parse(cmd.UserID); err != nil {
		return nil, s.failCreate(model.KindInvalidReference, cmd.UserID, err)
	}

	course, err := s.courseRepo.FindBySlug(ctx, cmd.Template)
	if err != nil {
		log.Error("コースの取得に失敗しました", slog.String("error", err.Error()))
		return nil, s.failCreate(model.KindDatabase, cmd.Template, err)
	}
	if course == nil {
		log.Info("テンプレートに対応するコースが存在しません")
		return nil, s.failCreate(model.KindNotFound, cmd.Template, nil)
	}

	// 3. Gitサーバーでの作成
	start := time.Now()
	err = s.provisioner.CreateRepository(ctx, repoName, cmd.Template)
	s.metrics.RecordProvisionLatency(time.Since(start))
	if err != nil {
		log.Error("Gitサーバーでのリポジトリ作成に失敗しました", slog.String("error", err.Error()))
		return nil, s.failCreate(model.KindGitServer, repoName, err)
	}

	// 4. ドキュメントの保存
	doc := &model.Repository{
		RepoName:     repoName,
		RepoTemplate: cmd.Template,
		TesterURL:    s.cfg.Testers.Resolve(cmd.Template, course),
		Relationships: map[string]model.Relationship{
			model.RelationRoleUser:   {ID: cmd.UserID, Type: model.DocumentTypeUser},
			model.RelationRoleCourse: {ID: course.ID, Type: model.DocumentTypeCourse},
		},
		ExpectedPracticeFrequency: cmd.ExpectedPracticeFrequency,
		IsReminderEnabled:         cmd.IsReminderEnabled,
	}

	repositoryID, err := s.repoRepo.Insert(ctx, doc)
	if err != nil {
		kind := model.KindDatabase
		if errors.Is(err, repository.ErrNoInsertedID) {
			kind = model.KindInsertion
		}
		log.Warn("orphaned remote repository",
			slog.String("step", "insert_repository"),
			slog.String("error", err.Error()),
		)
		return nil, s.failCreate(kind, repoName, err)
	}

	// 5. ユーザーへの逆参照追加
	if err := s.userRepo.AddRepository(ctx, cmd.UserID, repositoryID); err != nil {
		log.Warn("repository saved without user back-reference",
			slog.String("repository_id", repositoryID),
			slog.String("error", err.Error()),
		)
		return nil, s.failCreate(model.KindDatabase, repoName, err)
	}

	s.metrics.RecordRepositoryCreation(metrics.ResultCreated)
	log.Info("リポジトリを作成しました", slog.String("repository_id", repositoryID))

	return &CreateResult{RepoName: repoName, RepoTemplate: cmd.Template}, nil
}

// GetRepository はrepo_nameでリポジトリを取得する。
func (s *Service) GetRepository(ctx context.Context, repoName string) (*model.Repository, error) {
	const op = model.OpGetRepository

	found, err := s.repoRepo.FindByName(ctx, repoName)
	if err != nil {
		s.logger.Error("リポジトリの取得に失敗しました",
			slog.String("repo_name", repoName),
			slog.String("error", err.Error()),
		)
		return nil, model.NewOpError(op, model.KindDatabase, repoName, err)
	}
	if found == nil {
		return nil, model.NewOpError(op, model.KindNotFound, repoName, nil)
	}
	return found, nil
}

// UpdateRepository はリポジトリを部分更新する。空のパッチは現在の内容を返す。
func (s *Service) UpdateRepository(ctx context.Context, repoName string, patch model.RepositoryPatch) (*model.Repository, error) {
	const op = model.OpUpdateRepository

	if patch.IsEmpty() {
		found, err := s.GetRepository(ctx, repoName)
		if err != nil {
			var opErr *model.OpError
			if errors.As(err, &opErr) {
				opErr.Op = op
			}
			return nil, err
		}
		return found, nil
	}

	updated, err := s.repoRepo.Update(ctx, repoName, patch)
	if err != nil {
		s.logger.Error("リポジトリの更新に失敗しました",
			slog.String("repo_name", repoName),
			slog.String("error", err.Error()),
		)
		return nil, model.NewOpError(op, model.KindDatabase, repoName, err)
	}
	if updated == nil {
		return nil, model.NewOpError(op, model.KindNotFound, repoName, nil)
	}

	s.logger.Info("リポジトリを更新しました", slog.String("repo_name", repoName))
	return updated, nil
}

// EnsureUserLink はリポジトリの"user"エッジが指すユーザーに逆参照が存在することを保証する。
// 冪等であり、既に逆参照がある場合は何も変更しない。
func (s *Service) EnsureUserLink(ctx context.Context, repoName string) error {
	const op = model.OpEnsureUserLink

	found, err := s.repoRepo.FindByName(ctx, repoName)
	if err != nil {
		return model.NewOpError(op, model.KindDatabase, repoName, err)
	}
	if found == nil {
		return model.NewOpError(op, model.KindNotFound, repoName, nil)
	}

	edge, ok := found.UserRelationship()
	if !ok {
		return model.NewOpError(op, model.KindInvalidReference, repoName, errors.New("repository has no user relationship"))
	}
	if _, err := uuid.Parse(edge.ID); err != nil {
		return model.NewOpError(op, model.KindInvalidReference, edge.ID, err)
	}

	if err := s.userRepo.AddRepository(ctx, edge.ID, found.ID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.NewOpError(op, model.KindNotFound, edge.ID, err)
		}
		return model.NewOpError(op, model.KindDatabase, repoName, err)
	}

	s.logger.Info("ユーザーへの逆参照を確認しました",
		slog.String("repo_name", repoName),
		slog.String("user_id", edge.ID),
	)
	return nil
}

// failCreate はリポジトリ作成の失敗をメトリクスに記録し、OpErrorを返す。
func (s *Service) failCreate(kind model.ErrorKind, ref string, err error) error {
	s.metrics.RecordRepositoryCreation(string(kind))
	return model.NewOpError(model.OpCreateRepository, kind, ref, err)
}
