package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

// --- モック定義 ---

// mockCourseService はCourseServiceInterfaceのモック実装。
type mockCourseService struct {
	fetchCourseFn func(ctx context.Context, courseID string) (*courseResponse, error)
}

func (m *mockCourseService) FetchCourse(ctx context.Context, courseID string) (*courseResponse, error) {
	if m.fetchCourseFn != nil {
		return m.fetchCourseFn(ctx, courseID)
	}
	return nil, nil
}

// mockRepositoryService はRepositoryServiceInterfaceのモック実装。
type mockRepositoryService struct {
	createRepositoryFn func(ctx context.Context, req createRepositoryRequest) (*createRepositoryResponse, error)
	getRepositoryFn    func(ctx context.Context, repoName string) (*repositoryResponse, error)
	updateRepositoryFn func(ctx context.Context, repoName string, req updateRepositoryRequest) (*repositoryResponse, error)
}

func (m *mockRepositoryService) CreateRepository(ctx context.Context, req createRepositoryRequest) (*createRepositoryResponse, error) {
	if m.createRepositoryFn != nil {
		return m.createRepositoryFn(ctx, req)
	}
	return nil, nil
}

func (m *mockRepositoryService) GetRepository(ctx context.Context, repoName string) (*repositoryResponse, error) {
	if m.getRepositoryFn != nil {
		return m.getRepositoryFn(ctx, repoName)
	}
	return nil, nil
}

func (m *mockRepositoryService) UpdateRepository(ctx context.Context, repoName string, req updateRepositoryRequest) (*repositoryResponse, error) {
	if m.updateRepositoryFn != nil {
		return m.updateRepositoryFn(ctx, repoName, req)
	}
	return nil, nil
}

// mockSubmissionService はSubmissionServiceInterfaceのモック実装。
type mockSubmissionService struct {
	createSubmissionFn func(ctx context.Context, req createSubmissionRequest) (*createSubmissionResponse, error)
	listSubmissionsFn  func(ctx context.Context, repoName string) ([]submissionResponse, error)
}

func (m *mockSubmissionService) CreateSubmission(ctx context.Context, req createSubmissionRequest) (*createSubmissionResponse, error) {
	if m.createSubmissionFn != nil {
		return m.createSubmissionFn(ctx, req)
	}
	return nil, nil
}

func (m *mockSubmissionService) ListSubmissions(ctx context.Context, repoName string) ([]submissionResponse, error) {
	if m.listSubmissionsFn != nil {
		return m.listSubmissionsFn(ctx, repoName)
	}
	return nil, nil
}

// mockPinger はPingerのモック実装。
type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(ctx context.Context) error {
	return m.err
}

// --- テストヘルパー ---

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
