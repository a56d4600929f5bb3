package model

import "time"

// Submission はテスト実行の提出イベントを表す。書き込み後は変更しない。
type Submission struct {
	ID            string
	RepoName      string
	CommitSHA     string
	LogstreamID   string
	LogstreamURL  string
	Relationships []Relationship
	CreatedAt     time.Time
}
