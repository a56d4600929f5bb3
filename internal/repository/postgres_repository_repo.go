package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/coursegit/internal/model"
)

// PostgresRepositoryRepo はPostgreSQLを使用した演習リポジトリのリポジトリ。
type PostgresRepositoryRepo struct {
	db *sql.DB
}

// NewPostgresRepositoryRepo はPostgresRepositoryRepoを生成する。
func NewPostgresRepositoryRepo(db *sql.DB) *PostgresRepositoryRepo {
	return &PostgresRepositoryRepo{db: db}
}

const repositoryColumns = `id, repo_name, repo_template, tester_url, relationships,
	expected_practice_frequency, is_reminder_enabled, test_ok, created_at, updated_at`

// Insert はリポジトリを挿入し、ストアが払い出したIDを返す。
func (r *PostgresRepositoryRepo) Insert(ctx context.Context, repo *model.Repository) (string, error) {
	relationships, err := encodeRelationMap(repo.Relationships)
	if err != nil {
		return "", err
	}

	var id sql.NullString
	err = r.db.QueryRowContext(ctx,
		`INSERT INTO repositories (repo_name, repo_template, tester_url, relationships,
		                           expected_practice_frequency, is_reminder_enabled, test_ok)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		repo.RepoName, repo.RepoTemplate, repo.TesterURL, string(relationships),
		string(repo.ExpectedPracticeFrequency), repo.IsReminderEnabled, repo.TestOK,
	).Scan(&id)

	if err == sql.ErrNoRows {
		return "", ErrNoInsertedID
	}
	if err != nil {
		return "", fmt.Errorf("リポジトリの挿入に失敗しました: %w", err)
	}
	if !id.Valid || id.String == "" {
		return "", ErrNoInsertedID
	}

	return id.String, nil
}

// FindByName はrepo_nameでリポジトリを取得する。見つからない場合はnilを返す。
func (r *PostgresRepositoryRepo) FindByName(ctx context.Context, name string) (*model.Repository, error) {
	repo, err := scanRepository(r.db.QueryRowContext(ctx,
		`SELECT `+repositoryColumns+` FROM repositories WHERE repo_name = $1`,
		name,
	))
	if err != nil {
		return nil, fmt.Errorf("リポジトリの取得に失敗しました: %w", err)
	}
	return repo, nil
}

// Update はリポジトリを部分更新し、更新後のドキュメントを返す。見つからない場合はnilを返す。
// nilフィールドはCOALESCEにより既存の値を維持する。
func (r *PostgresRepositoryRepo) Update(ctx context.Context, name string, patch model.RepositoryPatch) (*model.Repository, error) {
	var frequency sql.NullString
	if patch.ExpectedPracticeFrequency != nil {
		frequency = nullString(string(*patch.ExpectedPracticeFrequency))
	}

	// JSONBはlib/pqで[]byteを渡すとbyteaとして送られるため文字列で渡す
	var relationships sql.NullString
	if patch.Relationships != nil {
		b, err := encodeRelationMap(patch.Relationships)
		if err != nil {
			return nil, err
		}
		relationships = nullString(string(b))
	}

	repo, err := scanRepository(r.db.QueryRowContext(ctx,
		`UPDATE repositories SET
		    expected_practice_frequency = COALESCE($2, expected_practice_frequency),
		    is_reminder_enabled = COALESCE($3, is_reminder_enabled),
		    test_ok = COALESCE($4, test_ok),
		    relationships = COALESCE($5::jsonb, relationships),
		    updated_at = now()
		 WHERE repo_name = $1
		 RETURNING `+repositoryColumns,
		name, frequency, patch.IsReminderEnabled, patch.TestOK, relationships,
	))
	if err != nil {
		return nil, fmt.Errorf("リポジトリの更新に失敗しました: %w", err)
	}
	return repo, nil
}

// ListUnlinked は"user"エッジの参照先ユーザーに逆参照が存在しないリポジトリを返す。
// 参照先ユーザー自体が存在しない場合は対象外とする。
func (r *PostgresRepositoryRepo) ListUnlinked(ctx context.Context, limit int) ([]model.UnlinkedRepository, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.repo_name, u.id
		 FROM repositories r
		 INNER JOIN users u ON u.id::text = r.relationships->'user'->>'id'
		 WHERE NOT u.repositories @> jsonb_build_array(
		           jsonb_build_object('id', r.id::text, 'type', 'repository'))
		 ORDER BY r.created_at ASC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("逆参照が欠落したリポジトリの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var result []model.UnlinkedRepository
	for rows.Next() {
		var u model.UnlinkedRepository
		if err := rows.Scan(&u.RepositoryID, &u.RepoName, &u.UserID); err != nil {
			return nil, fmt.Errorf("逆参照が欠落したリポジトリの読み取りに失敗しました: %w", err)
		}
		result = append(result, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("逆参照が欠落したリポジトリの走査に失敗しました: %w", err)
	}

	return result, nil
}

func scanRepository(row *sql.Row) (*model.Repository, error) {
	repo := &model.Repository{}
	var relationships []byte
	var frequency string
	var testOK sql.NullBool

	err := row.Scan(
		&repo.ID, &repo.RepoName, &repo.RepoTemplate, &repo.TesterURL, &relationships,
		&frequency, &repo.IsReminderEnabled, &testOK, &repo.CreatedAt, &repo.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	repo.ExpectedPracticeFrequency = model.ExpectedPracticeFrequency(frequency)
	if testOK.Valid {
		v := testOK.Bool
		repo.TestOK = &v
	}
	repo.Relationships, err = decodeRelationMap(relationships)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

// compile-time interface check
var _ RepositoryRepository = (*PostgresRepositoryRepo)(nil)
