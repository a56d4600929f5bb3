package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// CourseServiceInterface はコースハンドラーが必要とするサービスインターフェース。
type CourseServiceInterface interface {
	// FetchCourse はIDでコースを取得する。
	FetchCourse(ctx context.Context, courseID string) (*courseResponse, error)
}

// CourseHandler はコース参照のHTTPハンドラー。
type CourseHandler struct {
	service CourseServiceInterface
	logger  *slog.Logger
}

// NewCourseHandler はCourseHandlerを生成する。loggerがnilの場合はslog.Default()を使う。
func NewCourseHandler(service CourseServiceInterface, logger *slog.Logger) *CourseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseHandler{service: service, logger: logger}
}

// GetCourse はコースを取得する。
// GET /api/v0/course/{course_id}
func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	courseID := chi.URLParam(r, "course_id")

	course, err := h.service.FetchCourse(r.Context(), courseID)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, course)
}
