package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/coursegit/internal/model"
)

// PostgresCourseRepo はPostgreSQLを使用したコースリポジトリ。
type PostgresCourseRepo struct {
	db *sql.DB
}

// NewPostgresCourseRepo はPostgresCourseRepoを生成する。
func NewPostgresCourseRepo(db *sql.DB) *PostgresCourseRepo {
	return &PostgresCourseRepo{db: db}
}

const selectCourseColumns = `SELECT id, slug, name, tester_url, relationships FROM courses`

// FindBySlug はslugが一致するコースを取得する。見つからない場合はnilを返す。
func (r *PostgresCourseRepo) FindBySlug(ctx context.Context, slug string) (*model.Course, error) {
	course, err := scanCourse(r.db.QueryRowContext(ctx, selectCourseColumns+` WHERE slug = $1`, slug))
	if err != nil {
		return nil, fmt.Errorf("slugによるコースの取得に失敗しました: %w", err)
	}
	return course, nil
}

// FindByID は指定IDのコースを取得する。見つからない場合はnilを返す。
// UUIDとして不正なIDは該当なしとして扱う。
func (r *PostgresCourseRepo) FindByID(ctx context.Context, id string) (*model.Course, error) {
	if !isUUID(id) {
		return nil, nil
	}
	course, err := scanCourse(r.db.QueryRowContext(ctx, selectCourseColumns+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("IDによるコースの取得に失敗しました: %w", err)
	}
	return course, nil
}

func scanCourse(row *sql.Row) (*model.Course, error) {
	course := &model.Course{}
	var testerURL sql.NullString
	var relationships []byte

	err := row.Scan(&course.ID, &course.Slug, &course.Name, &testerURL, &relationships)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	course.TesterURL = nullStringValue(testerURL)
	course.Relationships, err = decodeRelationList(relationships)
	if err != nil {
		return nil, err
	}
	return course, nil
}

// compile-time interface check
var _ CourseRepository = (*PostgresCourseRepo)(nil)
