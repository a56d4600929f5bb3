package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/coursegit/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	// TrustProxyHeaders がtrueの場合のみRealIPでRemoteAddrを書き換える。
	TrustProxyHeaders bool
	RateLimiter       *middleware.RateLimiter
	StatusRecorder    middleware.StatusRecorder

	// 運用エンドポイント
	DB             Pinger
	MetricsHandler http.Handler

	// サービス
	CourseService     CourseServiceInterface
	RepositoryService RepositoryServiceInterface
	SubmissionService SubmissionServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	[RealIP] → RequestID → Recovery → Logging → Metrics → SecurityHeaders → CORS → RateLimit(General)
//
// RealIPはTrustProxyHeadersが有効な場合のみ適用する。無効な場合、レート制限はTCP接続元で判定する。
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.RequestID)
	r.Use(middleware.NewRecoveryMiddleware(deps.Logger))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.Get("/health", NewHealthHandler(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	courseHandler := NewCourseHandler(deps.CourseService, deps.Logger)
	repoHandler := NewRepositoryHandler(deps.RepositoryService, deps.Logger)
	subHandler := NewSubmissionHandler(deps.SubmissionService, deps.Logger)

	r.Route("/api/v0", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/course/{course_id}", courseHandler.GetCourse)

		r.Route("/repository", func(r chi.Router) {
			// POST /api/v0/repository - リポジトリ作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.RepositoryCreationMiddleware()).Post("/", repoHandler.CreateRepository)

			r.Route("/{repo_name}", func(r chi.Router) {
				r.Get("/", repoHandler.GetRepository)
				r.Patch("/", repoHandler.UpdateRepository)
				r.Get("/submissions", subHandler.ListSubmissions)
			})
		})

		r.Post("/submission", subHandler.CreateSubmission)
	})

	return r
}
