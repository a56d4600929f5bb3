package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/coursegit/internal/model"
)

// --- POST /api/v0/repository テスト ---

func TestRepositoryHandler_CreateRepository_Success(t *testing.T) {
	svc := &mockRepositoryService{
		createRepositoryFn: func(ctx context.Context, req createRepositoryRequest) (*createRepositoryResponse, error) {
			if req.RepoTemplate != "rust-state-machine" {
				t.Errorf("RepoTemplate = %q, want %q", req.RepoTemplate, "rust-state-machine")
			}
			if req.UserID != "6f1c1d4e-3f7b-4c6e-9a55-2a9c4b1d7e10" {
				t.Errorf("UserID = %q", req.UserID)
			}
			if req.ExpectedPracticeFrequency != model.PracticeOnceAWeek {
				t.Errorf("ExpectedPracticeFrequency = %q, want %q", req.ExpectedPracticeFrequency, model.PracticeOnceAWeek)
			}
			if req.IsReminderEnabled == nil || !*req.IsReminderEnabled {
				t.Error("IsReminderEnabled should be true")
			}
			return &createRepositoryResponse{RepoName: "0123456789abcdef", RepoTemplate: req.RepoTemplate}, nil
		},
	}

	h := NewRepositoryHandler(svc, nil)

	body := `{"repo_template":"rust-state-machine","user_id":"6f1c1d4e-3f7b-4c6e-9a55-2a9c4b1d7e10","expected_practice_frequency":"once_a_week","is_reminder_enabled":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v0/repository", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.CreateRepository(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want %q", ct, "application/json")
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["repo_name"] != "0123456789abcdef" {
		t.Errorf("repo_name = %v, want %q", result["repo_name"], "0123456789abcdef")
	}
	if result["repo_template"] != "rust-state-machine" {
		t.Errorf("repo_template = %v, want %q", result["repo_template"], "rust-state-machine")
	}
}

func TestRepositoryHandler_CreateRepository_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{"repo_template":`},
		{"missing template", `{"user_id":"u","expected_practice_frequency":"every_day","is_reminder_enabled":false}`},
		{"missing user", `{"repo_template":"t","expected_practice_frequency":"every_day","is_reminder_enabled":false}`},
		{"unknown frequency", `{"repo_template":"t","user_id":"u","expected_practice_frequency":"hourly","is_reminder_enabled":false}`},
		{"missing reminder flag", `{"repo_template":"t","user_id":"u","expected_practice_frequency":"every_day"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			svc := &mockRepositoryService{
				createRepositoryFn: func(ctx context.Context, req createRepositoryRequest) (*createRepositoryResponse, error) {
					called = true
					return nil, nil
				},
			}
			h := NewRepositoryHandler(svc, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/v0/repository", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()

			h.CreateRepository(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			if called {
				t.Error("service should not be called for invalid input")
			}
			if got := parseAPIErrorResponse(t, w)["code"]; got != model.ErrCodeInvalidRequest {
				t.Errorf("code = %q, want %q", got, model.ErrCodeInvalidRequest)
			}
		})
	}
}

func TestRepositoryHandler_CreateRepository_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		kind       model.ErrorKind
		wantStatus int
		wantCode   string
	}{
		{"unknown template", model.KindNotFound, http.StatusNotFound, model.ErrCodeNotFound},
		{"git server failure", model.KindGitServer, http.StatusInternalServerError, model.ErrCodeInternal},
		{"database failure", model.KindDatabase, http.StatusInternalServerError, model.ErrCodeInternal},
		{"insertion failure", model.KindInsertion, http.StatusInternalServerError, model.ErrCodeInternal},
		{"malformed user id", model.KindInvalidReference, http.StatusInternalServerError, model.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockRepositoryService{
				createRepositoryFn: func(ctx context.Context, req createRepositoryRequest) (*createRepositoryResponse, error) {
					return nil, model.NewOpError(model.OpCreateRepository, tt.kind, "no-such-course", errors.New("driver: secret detail"))
				},
			}
			h := NewRepositoryHandler(svc, nil)

			body := `{"repo_template":"no-such-course","user_id":"u","expected_practice_frequency":"every_day","is_reminder_enabled":false}`
			req := httptest.NewRequest(http.MethodPost, "/api/v0/repository", bytes.NewBufferString(body))
			w := httptest.NewRecorder()

			h.CreateRepository(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			raw := w.Body.String()
			if bytes.Contains([]byte(raw), []byte("secret detail")) {
				t.Errorf("response leaks internal detail: %s", raw)
			}
			if got := parseAPIErrorResponse(t, w)["code"]; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

// --- GET /api/v0/repository/{repo_name} テスト ---

func TestRepositoryHandler_GetRepository_Success(t *testing.T) {
	svc := &mockRepositoryService{
		getRepositoryFn: func(ctx context.Context, repoName string) (*repositoryResponse, error) {
			if repoName != "abc123" {
				t.Errorf("repoName = %q, want %q", repoName, "abc123")
			}
			return &repositoryResponse{
				RepoName:     "abc123",
				RepoTemplate: "rust-state-machine",
				TesterURL:    "https://tester.example.com",
				Relationships: map[string]model.Relationship{
					"user":   {ID: "u1", Type: model.DocumentTypeUser},
					"course": {ID: "c1", Type: model.DocumentTypeCourse},
				},
				ExpectedPracticeFrequency: model.PracticeEveryDay,
			}, nil
		},
	}
	h := NewRepositoryHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v0/repository/abc123", nil)
	req = withChiURLParam(req, "repo_name", "abc123")
	w := httptest.NewRecorder()

	h.GetRepository(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	rels, ok := result["relationships"].(map[string]interface{})
	if !ok {
		t.Fatalf("relationships is not an object: %v", result["relationships"])
	}
	user, _ := rels["user"].(map[string]interface{})
	if user["id"] != "u1" || user["type"] != "user" {
		t.Errorf("relationships.user = %v", user)
	}
	if result["expected_practice_frequency"] != "every_day" {
		t.Errorf("expected_practice_frequency = %v", result["expected_practice_frequency"])
	}
	if v, present := result["test_ok"]; !present || v != nil {
		t.Errorf("test_ok = %v (present=%v), want null", v, present)
	}
}

func TestRepositoryHandler_GetRepository_NotFound(t *testing.T) {
	svc := &mockRepositoryService{
		getRepositoryFn: func(ctx context.Context, repoName string) (*repositoryResponse, error) {
			return nil, model.NewOpError(model.OpGetRepository, model.KindNotFound, repoName, nil)
		},
	}
	h := NewRepositoryHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v0/repository/missing", nil)
	req = withChiURLParam(req, "repo_name", "missing")
	w := httptest.NewRecorder()

	h.GetRepository(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	errResp := parseAPIErrorResponse(t, w)
	if errResp["code"] != model.ErrCodeNotFound {
		t.Errorf("code = %q, want %q", errResp["code"], model.ErrCodeNotFound)
	}
	if !bytes.Contains([]byte(errResp["message"]), []byte("missing")) {
		t.Errorf("message should name the reference, got %q", errResp["message"])
	}
}

// --- PATCH /api/v0/repository/{repo_name} テスト ---

func TestRepositoryHandler_UpdateRepository_Success(t *testing.T) {
	svc := &mockRepositoryService{
		updateRepositoryFn: func(ctx context.Context, repoName string, req updateRepositoryRequest) (*repositoryResponse, error) {
			if req.TestOK == nil || !*req.TestOK {
				t.Error("TestOK should be true")
			}
			if req.IsReminderEnabled != nil {
				t.Error("IsReminderEnabled should be omitted")
			}
			if req.ExpectedPracticeFrequency == nil || *req.ExpectedPracticeFrequency != model.PracticeOnceAMonth {
				t.Errorf("ExpectedPracticeFrequency = %v", req.ExpectedPracticeFrequency)
			}
			ok := true
			return &repositoryResponse{
				RepoName:                  repoName,
				TestOK:                    &ok,
				ExpectedPracticeFrequency: model.PracticeOnceAMonth,
				Relationships:             map[string]model.Relationship{},
			}, nil
		},
	}
	h := NewRepositoryHandler(svc, nil)

	body := `{"test_ok":true,"expected_practice_frequency":"once_a_month"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v0/repository/abc123", bytes.NewBufferString(body))
	req = withChiURLParam(req, "repo_name", "abc123")
	w := httptest.NewRecorder()

	h.UpdateRepository(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var result map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["test_ok"] != true {
		t.Errorf("test_ok = %v, want true", result["test_ok"])
	}
}

func TestRepositoryHandler_UpdateRepository_InvalidRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `not json`},
		{"unknown frequency", `{"expected_practice_frequency":"sometimes"}`},
		{"unknown relationship type", `{"relationships":{"user":{"id":"u1","type":"team"}}}`},
		{"empty relationship id", `{"relationships":{"user":{"id":"","type":"user"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRepositoryHandler(&mockRepositoryService{
				updateRepositoryFn: func(ctx context.Context, repoName string, req updateRepositoryRequest) (*repositoryResponse, error) {
					t.Error("service should not be called for invalid input")
					return nil, nil
				},
			}, nil)

			req := httptest.NewRequest(http.MethodPatch, "/api/v0/repository/abc123", bytes.NewBufferString(tt.body))
			req = withChiURLParam(req, "repo_name", "abc123")
			w := httptest.NewRecorder()

			h.UpdateRepository(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}
