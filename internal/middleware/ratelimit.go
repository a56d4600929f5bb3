package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/coursegit/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // API全般のレート（req/sec）
	GeneralBurst    int           // API全般のバーストサイズ
	RepoCreateRate  rate.Limit    // リポジトリ作成のレート（req/sec）
	RepoCreateBurst int           // リポジトリ作成のバーストサイズ
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// API全般 120 req/min/client、リポジトリ作成 10 req/min/client。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfigPerMinute(120, 10)
}

// RateLimiterConfigPerMinute はreq/min単位の上限からRateLimiterConfigを生成する。
// バーストサイズは1分あたりの上限と同じにする。0以下の値は1として扱う。
func RateLimiterConfigPerMinute(general, repoCreate int) RateLimiterConfig {
	if general < 1 {
		general = 1
	}
	if repoCreate < 1 {
		repoCreate = 1
	}
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(float64(general) / 60.0),
		GeneralBurst:    general,
		RepoCreateRate:  rate.Limit(float64(repoCreate) / 60.0),
		RepoCreateBurst: repoCreate,
		CleanupInterval: 5 * time.Minute,
	}
}

// clientLimiter はクライアントごとのレートリミッターとアクセス時刻を保持する。
type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterSet は同じレート設定を持つクライアントごとのリミッターの集合。
type limiterSet struct {
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	limiters map[string]*clientLimiter
}

func newLimiterSet(r rate.Limit, burst int) *limiterSet {
	return &limiterSet{rate: r, burst: burst, limiters: make(map[string]*clientLimiter)}
}

// get はクライアントのリミッターを取得または作成し、最終アクセス時刻を更新する。
func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	cl, ok := s.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.rate, s.burst)}
		s.limiters[key] = cl
	}
	cl.lastAccess = time.Now()
	return cl.limiter
}

func (s *limiterSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// evict は最終アクセスがttlより古いエントリを削除する。
func (s *limiterSet) evict(now time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cl := range s.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(s.limiters, key)
		}
	}
}

// RateLimiter はクライアント（送信元IP）ごとのレート制限を管理する。
// API全般のレート制限とリポジトリ作成のレート制限の2種類を提供する。
type RateLimiter struct {
	config     RateLimiterConfig
	general    *limiterSet
	repoCreate *limiterSet
	logger     *slog.Logger
	stopOnce   sync.Once
	stopCh     chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig, logger *slog.Logger) *RateLimiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = 5 * time.Minute
	}
	rl := &RateLimiter{
		config:     config,
		general:    newLimiterSet(config.GeneralRate, config.GeneralBurst),
		repoCreate: newLimiterSet(config.RepoCreateRate, config.RepoCreateBurst),
		logger:     logger,
		stopCh:     make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。複数回呼び出してよい。
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general, "general")
}

// RepositoryCreationMiddleware はリポジトリ作成専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) RepositoryCreationMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.repoCreate, "repository_creation")
}

func (rl *RateLimiter) middleware(set *limiterSet, limitType string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			client := clientKey(r)

			if !set.get(client).Allow() {
				writeRateLimitResponse(w, set.rate)
				rl.logger.Warn("rate limit exceeded",
					slog.String("client", client),
					slog.String("limit_type", limitType),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.len()
}

// RepoCreateLimiterCount は現在管理されているリポジトリ作成リミッターのエントリ数を返す。
func (rl *RateLimiter) RepoCreateLimiterCount() int {
	return rl.repoCreate.len()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup は最終アクセス時刻がCleanupIntervalの2倍を超えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	now := time.Now()
	ttl := rl.config.CleanupInterval * 2
	rl.general.evict(now, ttl)
	rl.repoCreate.evict(now, ttl)
}

// clientKey はリクエストの送信元を識別するキーを返す。
// RemoteAddrからポートを除いたホスト部分を使う。
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := 1
	if r > 0 {
		retryAfterSec = int(math.Ceil(1.0 / float64(r)))
		if retryAfterSec < 1 {
			retryAfterSec = 1
		}
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, &model.APIError{
		Code:     model.ErrCodeRateLimited,
		Message:  "リクエストが多すぎます。",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	})
}
