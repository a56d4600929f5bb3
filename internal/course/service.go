// Package course はコースドキュメントの参照を提供する。
package course

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/coursegit/internal/model"
	"github.com/hitoshi/coursegit/internal/repository"
)

// Service はコース参照のサービス層。
type Service struct {
	courseRepo repository.CourseRepository
	logger     *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(courseRepo repository.CourseRepository, logger *slog.Logger) *Service {
	return &Service{courseRepo: courseRepo, logger: logger}
}

// FetchCourse はIDでコースを取得する。
// IDがUUIDとして不正な場合は問い合わせを行わずInvalidReferenceを返す。
func (s *Service) FetchCourse(ctx context.Context, id string) (*model.Course, error) {
	const op = model.OpFetchCourse

	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewOpError(op, model.KindInvalidReference, id, err)
	}

	c, err := s.courseRepo.FindByID(ctx, id)
	if err != nil {
		s.logger.Error("コースの取得に失敗しました",
			slog.String("course_id", id),
			slog.String("error", err.Error()),
		)
		return nil, model.NewOpError(op, model.KindDatabase, id, err)
	}
	if c == nil {
		return nil, model.NewOpError(op, model.KindNotFound, id, nil)
	}
	return c, nil
}
