package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/coursegit/internal/model"
)

// RepositoryServiceInterface はリポジトリハンドラーが必要とするサービスインターフェース。
type RepositoryServiceInterface interface {
	// CreateRepository はテンプレートから学習者のリポジトリを作成する。
	CreateRepository(ctx context.Context, req createRepositoryRequest) (*createRepositoryResponse, error)
	// GetRepository はrepo_nameでリポジトリを取得する。
	GetRepository(ctx context.Context, repoName string) (*repositoryResponse, error)
	// UpdateRepository はリポジトリを部分更新する。
	UpdateRepository(ctx context.Context, repoName string, req updateRepositoryRequest) (*repositoryResponse, error)
}

// RepositoryHandler はリポジトリ管理のHTTPハンドラー。
type RepositoryHandler struct {
	service RepositoryServiceInterface
	logger  *slog.Logger
}

// NewRepositoryHandler はRepositoryHandlerを生成する。loggerがnilの場合はslog.Default()を使う。
func NewRepositoryHandler(service RepositoryServiceInterface, logger *slog.Logger) *RepositoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RepositoryHandler{service: service, logger: logger}
}

// createRepositoryRequest はリポジトリ作成リクエストのボディ。
type createRepositoryRequest struct {
	RepoTemplate              string                          `json:"repo_template"`
	UserID                    string                          `json:"user_id"`
	ExpectedPracticeFrequency model.ExpectedPracticeFrequency `json:"expected_practice_frequency"`
	IsReminderEnabled         *bool                           `json:"is_reminder_enabled"`
}

// validate は必須項目と列挙値を検証し、不正な場合は理由を返す。
func (req createRepositoryRequest) validate() string {
	switch {
	case req.RepoTemplate == "":
		return "repo_templateが指定されていません"
	case req.UserID == "":
		return "user_idが指定されていません"
	case !req.ExpectedPracticeFrequency.Valid():
		return "expected_practice_frequencyが不正です"
	case req.IsReminderEnabled == nil:
		return "is_reminder_enabledが指定されていません"
	}
	return ""
}

// createRepositoryResponse はリポジトリ作成のAPIレスポンス。
type createRepositoryResponse struct {
	RepoName     string `json:"repo_name"`
	RepoTemplate string `json:"repo_template"`
}

// updateRepositoryRequest はリポジトリ更新リクエストのボディ。省略したフィールドは変更しない。
type updateRepositoryRequest struct {
	ExpectedPracticeFrequency *model.ExpectedPracticeFrequency `json:"expected_practice_frequency"`
	IsReminderEnabled         *bool                            `json:"is_reminder_enabled"`
	TestOK                    *bool                            `json:"test_ok"`
	Relationships             map[string]model.Relationship    `json:"relationships"`
}

func (req updateRepositoryRequest) validate() string {
	if req.ExpectedPracticeFrequency != nil && !req.ExpectedPracticeFrequency.Valid() {
		return "expected_practice_frequencyが不正です"
	}
	for role, rel := range req.Relationships {
		if role == "" || rel.ID == "" || !rel.Type.Valid() {
			return "relationshipsが不正です"
		}
	}
	return ""
}

// repositoryResponse はリポジトリ情報のAPIレスポンス。
type repositoryResponse struct {
	RepoName                  string                          `json:"repo_name"`
	RepoTemplate              string                          `json:"repo_template"`
	TesterURL                 string                          `json:"tester_url"`
	TestOK                    *bool                           `json:"test_ok"`
	Relationships             map[string]model.Relationship   `json:"relationships"`
	ExpectedPracticeFrequency model.ExpectedPracticeFrequency `json:"expected_practice_frequency"`
	IsReminderEnabled         bool                            `json:"is_reminder_enabled"`
}

// CreateRepository はリポジトリ作成を処理する。
// POST /api/v0/repository
func (h *RepositoryHandler) CreateRepository(w http.ResponseWriter, r *http.Request) {
	var req createRepositoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if reason := req.validate(); reason != "" {
		writeInvalidRequest(w, reason)
		return
	}

	resp, err := h.service.CreateRepository(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRepository はリポジトリを取得する。
// GET /api/v0/repository/{repo_name}
func (h *RepositoryHandler) GetRepository(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "repo_name")

	resp, err := h.service.GetRepository(r.Context(), repoName)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateRepository はリポジトリを部分更新する。
// PATCH /api/v0/repository/{repo_name}
func (h *RepositoryHandler) UpdateRepository(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "repo_name")

	var req updateRepositoryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if reason := req.validate(); reason != "" {
		writeInvalidRequest(w, reason)
		return
	}

	resp, err := h.service.UpdateRepository(r.Context(), repoName, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
