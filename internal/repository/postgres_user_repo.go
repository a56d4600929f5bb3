package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/coursegit/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	if !isUUID(id) {
		return nil, nil
	}

	user := &model.User{}
	var repositories, relationships []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, repositories, relationships FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Name, &repositories, &relationships)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	if user.Repositories, err = decodeRelationList(repositories); err != nil {
		return nil, err
	}
	if user.Relationships, err = decodeRelationList(relationships); err != nil {
		return nil, err
	}

	return user, nil
}

// AddRepository はユーザーのrepositoriesとrelationshipsにリポジトリへの参照を追加する。
// 1つのUPDATE文で行うため、同一ユーザーへの並行追加でも行ロックにより重複や欠落は起きない。
// 既に参照を持つ場合は内容を変更しない。
func (r *PostgresUserRepo) AddRepository(ctx context.Context, userID, repositoryID string) error {
	if !isUUID(userID) {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	edge, err := encodeRelationList([]model.Relationship{
		{ID: repositoryID, Type: model.DocumentTypeRepository},
	})
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET
		    repositories = CASE WHEN repositories @> $2::jsonb
		                        THEN repositories ELSE repositories || $2::jsonb END,
		    relationships = CASE WHEN relationships @> $2::jsonb
		                         THEN relationships ELSE relationships || $2::jsonb END,
		    updated_at = now()
		 WHERE id = $1`,
		userID, string(edge),
	)
	if err != nil {
		return fmt.Errorf("failed to add repository to user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
