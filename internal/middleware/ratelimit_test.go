package middleware

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hitoshi/coursegit/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func requestFrom(method, path, remoteAddr string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remoteAddr
	return req
}

// --- GeneralMiddleware (API全般) のテスト ---

func TestRateLimitMiddleware_AllowsRequestsWithinLimit(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     2, // 2 req/sec
		GeneralBurst:    5, // バースト5
		RepoCreateRate:  1,
		RepoCreateBurst: 10,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg, discardLogger())
	defer rl.Stop()

	handlerCallCount := 0
	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCallCount++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestFrom(http.MethodGet, "/api/v0/course/x", "192.0.2.1:1000"))

		if w.Result().StatusCode != http.StatusOK {
			t.Errorf("request %d: status = %d, want %d", i, w.Result().StatusCode, http.StatusOK)
		}
	}

	if handlerCallCount != 5 {
		t.Errorf("handler call count = %d, want 5", handlerCallCount)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     0.5, // 2秒に1回
		GeneralBurst:    2,
		RepoCreateRate:  1,
		RepoCreateBurst: 1,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg, discardLogger())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, requestFrom(http.MethodGet, "/api/v0/course/x", "192.0.2.1:1000"))
	}

	resp := last.Result()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}

	retryAfter, err := strconv.Atoi(resp.Header.Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After is not an integer: %q", resp.Header.Get("Retry-After"))
	}
	if retryAfter != 2 {
		t.Errorf("Retry-After = %d, want 2", retryAfter)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if body.Code != model.ErrCodeRateLimited {
		t.Errorf("code = %q, want %q", body.Code, model.ErrCodeRateLimited)
	}
}

func TestRateLimitMiddleware_IsolatesClients(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     0.01,
		GeneralBurst:    1,
		RepoCreateRate:  1,
		RepoCreateBurst: 1,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg, discardLogger())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 同一ホストはポートが異なっても同じクライアントとして扱う
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, requestFrom(http.MethodGet, "/", "192.0.2.1:1000"))
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, requestFrom(http.MethodGet, "/", "192.0.2.1:2000"))
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, requestFrom(http.MethodGet, "/", "192.0.2.2:1000"))

	if w1.Code != http.StatusOK {
		t.Errorf("first client first request = %d, want 200", w1.Code)
	}
	if w2.Code != http.StatusTooManyRequests {
		t.Errorf("first client second request = %d, want 429", w2.Code)
	}
	if w3.Code != http.StatusOK {
		t.Errorf("second client request = %d, want 200", w3.Code)
	}
	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", got)
	}
}

// --- RepositoryCreationMiddleware のテスト ---

func TestRepositoryCreationRateLimit_IndependentFromGeneralLimit(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     100,
		GeneralBurst:    100,
		RepoCreateRate:  0.01,
		RepoCreateBurst: 1,
		CleanupInterval: 1 * time.Minute,
	}

	rl := NewRateLimiter(cfg, discardLogger())
	defer rl.Stop()

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	general := rl.GeneralMiddleware()(ok)
	create := rl.GeneralMiddleware()(rl.RepositoryCreationMiddleware()(ok))

	w := httptest.NewRecorder()
	create.ServeHTTP(w, requestFrom(http.MethodPost, "/api/v0/repository", "192.0.2.1:1000"))
	if w.Code != http.StatusOK {
		t.Fatalf("first creation = %d, want 200", w.Code)
	}

	w = httptest.NewRecorder()
	create.ServeHTTP(w, requestFrom(http.MethodPost, "/api/v0/repository", "192.0.2.1:1000"))
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second creation = %d, want 429", w.Code)
	}

	// 作成の上限に達しても他のAPIは使える
	w = httptest.NewRecorder()
	general.ServeHTTP(w, requestFrom(http.MethodGet, "/api/v0/repository/abc", "192.0.2.1:1000"))
	if w.Code != http.StatusOK {
		t.Errorf("general request = %d, want 200", w.Code)
	}

	if got := rl.RepoCreateLimiterCount(); got != 1 {
		t.Errorf("RepoCreateLimiterCount = %d, want 1", got)
	}
}

// --- クリーンアップのテスト ---

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	cfg := RateLimiterConfig{
		GeneralRate:     2,
		GeneralBurst:    5,
		RepoCreateRate:  1,
		RepoCreateBurst: 10,
		CleanupInterval: 50 * time.Millisecond, // テスト用に短く
	}

	rl := NewRateLimiter(cfg, discardLogger())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), requestFrom(http.MethodGet, "/", "192.0.2.9:1000"))

	if rl.GeneralLimiterCount() == 0 {
		t.Fatal("expected at least one limiter entry")
	}

	// TTLは50ms * 2 = 100ms
	time.Sleep(300 * time.Millisecond)

	if count := rl.GeneralLimiterCount(); count != 0 {
		t.Errorf("expected 0 limiter entries after cleanup, got %d", count)
	}
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig(), discardLogger())
	rl.Stop()
	rl.Stop()
}

// --- 設定のテスト ---

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig()

	if cfg.GeneralRate != 2 {
		t.Errorf("GeneralRate = %v, want 2", cfg.GeneralRate)
	}
	if cfg.GeneralBurst != 120 {
		t.Errorf("GeneralBurst = %d, want 120", cfg.GeneralBurst)
	}
	if cfg.RepoCreateBurst != 10 {
		t.Errorf("RepoCreateBurst = %d, want 10", cfg.RepoCreateBurst)
	}
	if cfg.CleanupInterval != 5*time.Minute {
		t.Errorf("CleanupInterval = %v, want 5m", cfg.CleanupInterval)
	}
}

func TestRateLimiterConfigPerMinute_ClampsNonPositive(t *testing.T) {
	cfg := RateLimiterConfigPerMinute(0, -5)

	if cfg.GeneralBurst != 1 || cfg.RepoCreateBurst != 1 {
		t.Errorf("bursts = (%d, %d), want (1, 1)", cfg.GeneralBurst, cfg.RepoCreateBurst)
	}
	if cfg.GeneralRate <= 0 || cfg.RepoCreateRate <= 0 {
		t.Errorf("rates must be positive, got (%v, %v)", cfg.GeneralRate, cfg.RepoCreateRate)
	}
}
