package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/coursegit/internal/model"
)

// PostgresSubmissionRepo はPostgreSQLを使用した提出リポジトリ。
type PostgresSubmissionRepo struct {
	db *sql.DB
}

// NewPostgresSubmissionRepo はPostgresSubmissionRepoを生成する。
func NewPostgresSubmissionRepo(db *sql.DB) *PostgresSubmissionRepo {
	return &PostgresSubmissionRepo{db: db}
}

// Insert は提出を挿入する。同一のrepo_nameとcommit_shaでも重複排除は行わない。
func (r *PostgresSubmissionRepo) Insert(ctx context.Context, submission *model.Submission) error {
	relationships, err := encodeRelationList(submission.Relationships)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO submissions (repo_name, commit_sha, logstream_id, logstream_url, relationships, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		submission.RepoName, submission.CommitSHA,
		submission.LogstreamID, submission.LogstreamURL,
		string(relationships), submission.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("提出の挿入に失敗しました: %w", err)
	}
	return nil
}

// ListByRepoName はリポジトリの提出一覧をcreated_at降順で返す。
func (r *PostgresSubmissionRepo) ListByRepoName(ctx context.Context, repoName string) ([]*model.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, repo_name, commit_sha, logstream_id, logstream_url, relationships, created_at
		 FROM submissions
		 WHERE repo_name = $1
		 ORDER BY created_at DESC`,
		repoName,
	)
	if err != nil {
		return nil, fmt.Errorf("提出一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var submissions []*model.Submission
	for rows.Next() {
		s := &model.Submission{}
		var relationships []byte
		if err := rows.Scan(
			&s.ID, &s.RepoName, &s.CommitSHA,
			&s.LogstreamID, &s.LogstreamURL, &relationships, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("提出の読み取りに失敗しました: %w", err)
		}
		if s.Relationships, err = decodeRelationList(relationships); err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("提出一覧の走査に失敗しました: %w", err)
	}

	return submissions, nil
}

// compile-time interface check
var _ SubmissionRepository = (*PostgresSubmissionRepo)(nil)
