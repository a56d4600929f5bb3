// Package gitserver は外部Gitホスティングサービスとの連携を提供する。
// テンプレートからのリポジトリ作成APIを呼び出す。
package gitserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultBaseURL はGitサーバーのデフォルトのベースURL。
	DefaultBaseURL = "https://git.dotcodeschool.com"
	// createRepositoryPath はテンプレートからリポジトリを作成するAPIのパス。
	createRepositoryPath = "/api/v0/create_repository"
	// maxErrorBodySize はエラー時にログへ残すレスポンスボディの最大バイト数。
	maxErrorBodySize = 1024
)

// Config はGitサーバークライアントの設定。
type Config struct {
	BaseURL     string        // GitサーバーのベースURL
	BearerToken string        // 空の場合は認証なしで呼び出す
	Timeout     time.Duration // 0の場合はクライアント側のタイムアウトを設けない
}

// StatusError はGitサーバーが2xx以外のステータスを返したことを表す。
type StatusError struct {
	StatusCode int
	Body       string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("Gitサーバーがステータス %d を返しました", e.StatusCode)
}

// Provisioner はテンプレートからリポジトリを作成するインターフェース。
// 呼び出しが成功するとリモートにリポジトリが作成され、取り消しはできない。
type Provisioner interface {
	CreateRepository(ctx context.Context, repoName, template string) error
}

// Client はGitサーバーのHTTPクライアント。
// 失敗時のリトライは行わない（リトライ方針は呼び出し側の責務）。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
}

// createRepositoryRequest はリポジトリ作成APIのリクエストボディ。
type createRepositoryRequest struct {
	RepoName     string `json:"repo_name"`
	TemplateRepo string `json:"template_repo"`
}

// NewClient はClientの新しいインスタンスを生成する。
// baseがnilの場合はhttp.DefaultTransportを使用する。
// BearerTokenが設定されている場合はoauth2のTransportで全リクエストにBearerヘッダーを付与する。
// 未設定の場合は警告を出したうえで認証なしで動作する。
func NewClient(cfg Config, base *http.Client, logger *slog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var transport http.RoundTripper = http.DefaultTransport
	if base != nil && base.Transport != nil {
		transport = base.Transport
	}

	if cfg.BearerToken != "" {
		logger.Info("Gitサーバーの認証にBearerトークンを使用します")
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken}),
			Base:   transport,
		}
	} else {
		logger.Warn("Bearerトークンが設定されていないため、認証なしでGitサーバーを呼び出します")
	}

	return &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger:     logger,
		endpoint:   strings.TrimRight(baseURL, "/") + createRepositoryPath,
	}
}

// CreateRepository はtemplateを元にrepoNameという名前のリポジトリを作成する。
// 通信エラーおよび2xx以外のレスポンスはすべてエラーとして返す。
func (c *Client) CreateRepository(ctx context.Context, repoName, template string) error {
	body, err := json.Marshal(createRepositoryRequest{RepoName: repoName, TemplateRepo: template})
	if err != nil {
		return fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gitサーバーの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("repo_name", repoName),
			slog.String("template", template),
		)
		return fmt.Errorf("Gitサーバーへのリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		c.logger.Error("Gitサーバーがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("repo_name", repoName),
			slog.String("template", template),
			slog.String("body", string(detail)),
		)
		return &StatusError{StatusCode: resp.StatusCode, Body: string(detail)}
	}

	// コネクション再利用のためにボディを読み切る
	_, _ = io.Copy(io.Discard, resp.Body)

	c.logger.Info("Gitサーバーでリポジトリを作成しました",
		slog.String("repo_name", repoName),
		slog.String("template", template),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

var _ Provisioner = (*Client)(nil)
