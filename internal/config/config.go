package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hitoshi/coursegit/internal/gitserver"
	"github.com/hitoshi/coursegit/internal/tester"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Git server
	GitServerURL     string
	GitServerTimeout time.Duration
	BearerToken      string

	// Submission
	LogstreamBaseURL string
	WSURL            string

	// Tester
	TesterURL       string
	TesterOverrides map[string]string

	// Rate Limit（req/min）
	RateLimitGeneral    int
	RateLimitRepoCreate int

	// Reconcile
	ReconcileInterval  time.Duration
	ReconcileBatchSize int

	// Logging
	LogLevel slog.Level

	// Server
	ServerPort string
	// TrustProxyHeaders がtrueの場合のみX-Forwarded-For / X-Real-IPをクライアントアドレスとして扱う。
	// 信頼できるリバースプロキシの背後で動かす場合に限り有効にする。
	TrustProxyHeaders bool

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envが存在する場合は先に読み込む（既存の環境変数は上書きしない）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.LogstreamBaseURL = os.Getenv("LOGSTREAM_BASE_URL")
	if cfg.LogstreamBaseURL == "" {
		missing = append(missing, "LOGSTREAM_BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	overrides, err := tester.ParseOverrides(os.Getenv("TESTER_URLS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TESTER_URLS: %w", err)
	}
	cfg.TesterOverrides = overrides

	// Optional fields with defaults
	cfg.GitServerURL = getEnvString("GIT_SERVER_URL", gitserver.DefaultBaseURL)
	cfg.GitServerTimeout = getEnvDuration("GIT_SERVER_TIMEOUT", 0)
	if cfg.GitServerTimeout < 0 {
		cfg.GitServerTimeout = 0
	}
	cfg.BearerToken = getEnvString("BEARER_TOKEN_SECRET", "")
	cfg.WSURL = getEnvString("WS_URL", "")
	cfg.TesterURL = getEnvString("TESTER_URL", tester.DefaultURL)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitRepoCreate = getEnvInt("RATE_LIMIT_REPO_CREATE", 10)
	cfg.ReconcileInterval = getEnvPositiveDuration("RECONCILE_INTERVAL", 10*time.Minute)
	cfg.ReconcileBatchSize = getEnvPositiveInt("RECONCILE_BATCH_SIZE", 100)
	cfg.LogLevel = getEnvLevel("LOG_LEVEL", slog.LevelInfo)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", false)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvPositiveInt は0以下の値をデフォルト値に置き換える。
func getEnvPositiveInt(key string, defaultVal int) int {
	if i := getEnvInt(key, defaultVal); i > 0 {
		return i
	}
	return defaultVal
}

// getEnvPositiveDuration は0以下の値をデフォルト値に置き換える。
func getEnvPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	if d := getEnvDuration(key, defaultVal); d > 0 {
		return d
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// getEnvLevel は "debug", "info", "warn", "error" をslog.Levelに変換する。
func getEnvLevel(key string, defaultVal slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}
