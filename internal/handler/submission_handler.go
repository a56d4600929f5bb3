package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/coursegit/internal/model"
)

// SubmissionServiceInterface は提出ハンドラーが必要とするサービスインターフェース。
type SubmissionServiceInterface interface {
	// CreateSubmission は提出を記録し、ログストリームの接続情報を返す。
	CreateSubmission(ctx context.Context, req createSubmissionRequest) (*createSubmissionResponse, error)
	// ListSubmissions はリポジトリの提出一覧を新しい順に返す。
	ListSubmissions(ctx context.Context, repoName string) ([]submissionResponse, error)
}

// SubmissionHandler は提出のHTTPハンドラー。
type SubmissionHandler struct {
	service SubmissionServiceInterface
	logger  *slog.Logger
}

// NewSubmissionHandler はSubmissionHandlerを生成する。loggerがnilの場合はslog.Default()を使う。
func NewSubmissionHandler(service SubmissionServiceInterface, logger *slog.Logger) *SubmissionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmissionHandler{service: service, logger: logger}
}

// createSubmissionRequest は提出作成リクエストのボディ。
type createSubmissionRequest struct {
	RepoName  string `json:"repo_name"`
	CommitSHA string `json:"commit_sha"`
}

// createSubmissionResponse は提出作成のAPIレスポンス。ws_urlは未設定の場合省略する。
type createSubmissionResponse struct {
	LogstreamURL string `json:"logstream_url"`
	LogstreamID  string `json:"logstream_id"`
	TesterURL    string `json:"tester_url"`
	WSURL        string `json:"ws_url,omitempty"`
}

// submissionResponse は提出履歴の1件。
type submissionResponse struct {
	ID            string               `json:"id"`
	RepoName      string               `json:"repo_name"`
	CommitSHA     string               `json:"commit_sha"`
	LogstreamID   string               `json:"logstream_id"`
	LogstreamURL  string               `json:"logstream_url"`
	Relationships []model.Relationship `json:"relationships"`
	CreatedAt     time.Time            `json:"created_at"`
}

// CreateSubmission は提出を作成する。
// POST /api/v0/submission
func (h *SubmissionHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req createSubmissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RepoName == "" {
		writeInvalidRequest(w, "repo_nameが指定されていません")
		return
	}
	if req.CommitSHA == "" {
		writeInvalidRequest(w, "commit_shaが指定されていません")
		return
	}

	resp, err := h.service.CreateSubmission(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListSubmissions はリポジトリの提出履歴を返す。
// GET /api/v0/repository/{repo_name}/submissions
func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	repoName := chi.URLParam(r, "repo_name")

	subs, err := h.service.ListSubmissions(r.Context(), repoName)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if subs == nil {
		subs = []submissionResponse{}
	}

	writeJSON(w, http.StatusOK, subs)
}
