package handler

import (
	"context"

	"github.com/hitoshi/coursegit/internal/course"
	"github.com/hitoshi/coursegit/internal/model"
	"github.com/hitoshi/coursegit/internal/repo"
	"github.com/hitoshi/coursegit/internal/submission"
)

// courseResponse はコース情報のAPIレスポンス。
type courseResponse struct {
	ID            string               `json:"id"`
	Slug          string               `json:"slug"`
	Name          string               `json:"name"`
	TesterURL     string               `json:"tester_url,omitempty"`
	Relationships []model.Relationship `json:"relationships"`
}

// CourseServiceAdapter は course.Service を CourseServiceInterface に適合させるアダプタ。
type CourseServiceAdapter struct {
	svc *course.Service
}

// NewCourseServiceAdapter はCourseServiceAdapterを生成する。
func NewCourseServiceAdapter(svc *course.Service) *CourseServiceAdapter {
	return &CourseServiceAdapter{svc: svc}
}

// FetchCourse はコースをhandlerレスポンス型で返す。
func (a *CourseServiceAdapter) FetchCourse(ctx context.Context, courseID string) (*courseResponse, error) {
	c, err := a.svc.FetchCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	resp := toCourseResponse(c)
	return &resp, nil
}

// RepositoryServiceAdapter は repo.Service を RepositoryServiceInterface に適合させるアダプタ。
type RepositoryServiceAdapter struct {
	svc *repo.Service
}

// NewRepositoryServiceAdapter はRepositoryServiceAdapterを生成する。
func NewRepositoryServiceAdapter(svc *repo.Service) *RepositoryServiceAdapter {
	return &RepositoryServiceAdapter{svc: svc}
}

// CreateRepository はリクエストを作成コマンドに変換してリポジトリを作成する。
func (a *RepositoryServiceAdapter) CreateRepository(ctx context.Context, req createRepositoryRequest) (*createRepositoryResponse, error) {
	result, err := a.svc.CreateRepository(ctx, toCreateCommand(req))
	if err != nil {
		return nil, err
	}
	return &createRepositoryResponse{RepoName: result.RepoName, RepoTemplate: result.RepoTemplate}, nil
}

// GetRepository はリポジトリをhandlerレスポンス型で返す。
func (a *RepositoryServiceAdapter) GetRepository(ctx context.Context, repoName string) (*repositoryResponse, error) {
	found, err := a.svc.GetRepository(ctx, repoName)
	if err != nil {
		return nil, err
	}
	resp := toRepositoryResponse(found)
	return &resp, nil
}

// UpdateRepository はリクエストを部分更新に変換して適用し、更新後の内容を返す。
func (a *RepositoryServiceAdapter) UpdateRepository(ctx context.Context, repoName string, req updateRepositoryRequest) (*repositoryResponse, error) {
	updated, err := a.svc.UpdateRepository(ctx, repoName, toRepositoryPatch(req))
	if err != nil {
		return nil, err
	}
	resp := toRepositoryResponse(updated)
	return &resp, nil
}

// SubmissionServiceAdapter は submission.Service を SubmissionServiceInterface に適合させるアダプタ。
type SubmissionServiceAdapter struct {
	svc *submission.Service
}

// NewSubmissionServiceAdapter はSubmissionServiceAdapterを生成する。
func NewSubmissionServiceAdapter(svc *submission.Service) *SubmissionServiceAdapter {
	return &SubmissionServiceAdapter{svc: svc}
}

// CreateSubmission は提出を作成し、接続情報をhandlerレスポンス型で返す。
func (a *SubmissionServiceAdapter) CreateSubmission(ctx context.Context, req createSubmissionRequest) (*createSubmissionResponse, error) {
	result, err := a.svc.CreateSubmission(ctx, submission.CreateCommand{
		RepoName:  req.RepoName,
		CommitSHA: req.CommitSHA,
	})
	if err != nil {
		return nil, err
	}
	return &createSubmissionResponse{
		LogstreamURL: result.LogstreamURL,
		LogstreamID:  result.LogstreamID,
		TesterURL:    result.TesterURL,
		WSURL:        result.WSURL,
	}, nil
}

// ListSubmissions は提出一覧をhandlerレスポンス型で返す。
func (a *SubmissionServiceAdapter) ListSubmissions(ctx context.Context, repoName string) ([]submissionResponse, error) {
	subs, err := a.svc.ListSubmissions(ctx, repoName)
	if err != nil {
		return nil, err
	}

	results := make([]submissionResponse, len(subs))
	for i, s := range subs {
		results[i] = toSubmissionResponse(s)
	}
	return results, nil
}

// --- 変換関数 ---

func toCreateCommand(req createRepositoryRequest) repo.CreateCommand {
	cmd := repo.CreateCommand{
		Template:                  req.RepoTemplate,
		UserID:                    req.UserID,
		ExpectedPracticeFrequency: req.ExpectedPracticeFrequency,
	}
	if req.IsReminderEnabled != nil {
		cmd.IsReminderEnabled = *req.IsReminderEnabled
	}
	return cmd
}

func toRepositoryPatch(req updateRepositoryRequest) model.RepositoryPatch {
	return model.RepositoryPatch{
		ExpectedPracticeFrequency: req.ExpectedPracticeFrequency,
		IsReminderEnabled:         req.IsReminderEnabled,
		TestOK:                    req.TestOK,
		Relationships:             req.Relationships,
	}
}

func toCourseResponse(c *model.Course) courseResponse {
	rels := c.Relationships
	if rels == nil {
		rels = []model.Relationship{}
	}
	return courseResponse{
		ID:            c.ID,
		Slug:          c.Slug,
		Name:          c.Name,
		TesterURL:     c.TesterURL,
		Relationships: rels,
	}
}

func toRepositoryResponse(r *model.Repository) repositoryResponse {
	rels := r.Relationships
	if rels == nil {
		rels = map[string]model.Relationship{}
	}
	return repositoryResponse{
		RepoName:                  r.RepoName,
		RepoTemplate:              r.RepoTemplate,
		TesterURL:                 r.TesterURL,
		TestOK:                    r.TestOK,
		Relationships:             rels,
		ExpectedPracticeFrequency: r.ExpectedPracticeFrequency,
		IsReminderEnabled:         r.IsReminderEnabled,
	}
}

func toSubmissionResponse(s *model.Submission) submissionResponse {
	rels := s.Relationships
	if rels == nil {
		rels = []model.Relationship{}
	}
	return submissionResponse{
		ID:            s.ID,
		RepoName:      s.RepoName,
		CommitSHA:     s.CommitSHA,
		LogstreamID:   s.LogstreamID,
		LogstreamURL:  s.LogstreamURL,
		Relationships: rels,
		CreatedAt:     s.CreatedAt,
	}
}
