// Package repository はドキュメントストアへの型付き読み書き（Document Store Gateway）を定義する。
// 各操作は1往復で完結し、トランザクションをまたがない。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/coursegit/internal/model"
)

var (
	// ErrNoInsertedID は書き込みが成功したにもかかわらずIDを取得できなかったことを示す。
	ErrNoInsertedID = errors.New("inserted document did not return an id")
	// ErrUserNotFound は更新対象のユーザードキュメントが存在しないことを示す。
	ErrUserNotFound = errors.New("user not found")
)

// CourseRepository はコースドキュメントの読み取りインターフェース。
// コアからは読み取り専用として扱う。
type CourseRepository interface {
	// FindBySlug はslugが一致するコースを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Course, error)

	// FindByID は指定IDのコースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Course, error)
}

// RepositoryRepository はリポジトリドキュメントの永続化インターフェース。
type RepositoryRepository interface {
	// Insert はリポジトリを挿入し、ストアが払い出したIDを返す。
	// IDを取得できなかった場合はErrNoInsertedIDを返す。
	Insert(ctx context.Context, repo *model.Repository) (string, error)

	// FindByName はrepo_nameでリポジトリを取得する。見つからない場合はnilを返す。
	FindByName(ctx context.Context, name string) (*model.Repository, error)

	// Update はリポジトリを部分更新し、更新後のドキュメントを返す。
	// 見つからない場合はnilを返す。repo_nameとrepo_templateは変更しない。
	Update(ctx context.Context, name string, patch model.RepositoryPatch) (*model.Repository, error)

	// ListUnlinked は"user"エッジの参照先ユーザーに逆参照が存在しないリポジトリを返す。
	ListUnlinked(ctx context.Context, limit int) ([]model.UnlinkedRepository, error)
}

// UserRepository はユーザードキュメントの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// AddRepository はユーザーのrepositoriesとrelationshipsにリポジトリへの参照を追加する。
	// 既に存在する場合は何もしない（add to set）。ユーザーが存在しない場合はErrUserNotFoundを返す。
	AddRepository(ctx context.Context, userID, repositoryID string) error
}

// SubmissionRepository は提出ドキュメントの永続化インターフェース。
type SubmissionRepository interface {
	// Insert は提出を挿入する。
	Insert(ctx context.Context, submission *model.Submission) error

	// ListByRepoName はリポジトリの提出一覧をcreated_at降順で返す。
	ListByRepoName(ctx context.Context, repoName string) ([]*model.Submission, error)
}
