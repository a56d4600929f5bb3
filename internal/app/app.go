package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/coursegit/internal/config"
	"github.com/hitoshi/coursegit/internal/course"
	"github.com/hitoshi/coursegit/internal/database"
	"github.com/hitoshi/coursegit/internal/gitserver"
	"github.com/hitoshi/coursegit/internal/handler"
	"github.com/hitoshi/coursegit/internal/idgen"
	"github.com/hitoshi/coursegit/internal/logger"
	"github.com/hitoshi/coursegit/internal/metrics"
	"github.com/hitoshi/coursegit/internal/middleware"
	"github.com/hitoshi/coursegit/internal/repo"
	"github.com/hitoshi/coursegit/internal/repository"
	"github.com/hitoshi/coursegit/internal/submission"
	"github.com/hitoshi/coursegit/internal/tester"
	"github.com/hitoshi/coursegit/internal/worker/reconcile"
)

// dbPingTimeout は起動時のデータベース疎通確認のタイムアウト。
const dbPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたレベルでログを再構成する
	logger.SetupDefault(w, cfg.LogLevel)

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("git_server_url", cfg.GitServerURL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandServe:
		return runServe(ctx, cfg)
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return fmt.Errorf("%w %q", ErrUnknownCommand, cmd)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newRegistry はプロセス・Goランタイムのメトリクスを含むPrometheusレジストリを生成する。
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. ストアの初期化
	courseRepo := repository.NewPostgresCourseRepo(db)
	repoRepo := repository.NewPostgresRepositoryRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	submissionRepo := repository.NewPostgresSubmissionRepo(db)

	// 3. 外部連携とメトリクスの初期化
	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	gitClient := gitserver.NewClient(gitserver.Config{
		BaseURL:     cfg.GitServerURL,
		BearerToken: cfg.BearerToken,
		Timeout:     cfg.GitServerTimeout,
	}, nil, slog.Default())

	ids := idgen.Random{}

	// 4. ドメインサービスの初期化
	repoService := repo.NewService(
		ids, courseRepo, repoRepo, userRepo, gitClient, collector, slog.Default(),
		repo.Config{Testers: tester.NewTable(cfg.TesterURL, cfg.TesterOverrides)},
	)
	submissionService := submission.NewService(
		ids, repoRepo, submissionRepo, collector, slog.Default(),
		submission.Config{LogstreamBaseURL: cfg.LogstreamBaseURL, WSURL: cfg.WSURL},
	)
	courseService := course.NewService(courseRepo, slog.Default())

	// 5. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitRepoCreate),
		slog.Default(),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		RateLimiter:       rateLimiter,
		StatusRecorder:    collector,
		DB:                db,
		MetricsHandler:    metrics.Handler(reg),

		CourseService:     handler.NewCourseServiceAdapter(courseService),
		RepositoryService: handler.NewRepositoryServiceAdapter(repoService),
		SubmissionService: handler.NewSubmissionServiceAdapter(submissionService),
	})

	// 6. HTTPサーバーの起動
	// Gitサーバーの応答を待つ間もWriteTimeoutで打ち切られないよう、長めに取る
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return serveUntilDone(ctx, server, "API server")
}

// serveUntilDone はサーバーを起動し、ctxがキャンセルされたらシャットダウンする。
func serveUntilDone(ctx context.Context, server *http.Server, name string) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info(name+" starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("%s listen error: %w", name, err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down " + name + "...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%s shutdown failed: %w", name, err)
	}

	slog.Info(name + " stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、逆参照の整合ジョブを定期実行する。
// /metricsはSERVER_PORTで公開する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. ストアとサービスの初期化
	repoRepo := repository.NewPostgresRepositoryRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	courseRepo := repository.NewPostgresCourseRepo(db)

	reg := newRegistry()
	collector := metrics.NewCollector(reg)

	// 整合処理はGitサーバーを呼び出さないため、Provisionerは渡さない
	repoService := repo.NewService(
		idgen.Random{}, courseRepo, repoRepo, userRepo, nil, collector, slog.Default(),
		repo.Config{},
	)

	// 3. 整合ジョブの初期化
	job := reconcile.NewJob(repoRepo, repoService, collector, slog.Default())
	job.BatchSize = cfg.ReconcileBatchSize

	metricsServer := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           metrics.SetupMetricsRoute(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsDone := make(chan error, 1)
	go func() {
		metricsDone <- serveUntilDone(ctx, metricsServer, "worker metrics server")
	}()

	slog.Info("worker starting",
		slog.Duration("reconcile_interval", cfg.ReconcileInterval),
		slog.Int("batch_size", job.BatchSize),
	)

	// 整合ジョブをメインgoroutineで実行（ブロッキング）
	job.Start(ctx, cfg.ReconcileInterval)

	if err := <-metricsDone; err != nil {
		slog.Error("worker metrics server error", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.SchemaVersion(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
// 解析できない場合は全体を伏せる。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	if u.User != nil {
		u.User = url.User("xxxxx")
	}
	u.RawQuery = ""
	return u.String()
}
