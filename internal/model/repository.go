package model

import "time"

// ExpectedPracticeFrequency は学習者が想定する演習頻度を表す。
type ExpectedPracticeFrequency string

const (
	// PracticeEveryDay は毎日演習することを示す。
	PracticeEveryDay ExpectedPracticeFrequency = "every_day"
	// PracticeOnceAWeek は週1回演習することを示す。
	PracticeOnceAWeek ExpectedPracticeFrequency = "once_a_week"
	// PracticeOnceAMonth は月1回演習することを示す。
	PracticeOnceAMonth ExpectedPracticeFrequency = "once_a_month"
)

// Valid は定義済みの演習頻度かどうかを返す。
func (f ExpectedPracticeFrequency) Valid() bool {
	switch f {
	case PracticeEveryDay, PracticeOnceAWeek, PracticeOnceAMonth:
		return true
	default:
		return false
	}
}

// Repository は学習者ごとの演習リポジトリを表す。
// RepoNameは作成時に払い出され、以降は変更されない自然キーとして扱う。
type Repository struct {
	ID                        string
	RepoName                  string
	RepoTemplate              string
	TesterURL                 string
	Relationships             map[string]Relationship
	ExpectedPracticeFrequency ExpectedPracticeFrequency
	IsReminderEnabled         bool
	TestOK                    *bool
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

// UserRelationship はrelationshipsの"user"エッジを返す。存在しない場合はfalseを返す。
func (r *Repository) UserRelationship() (Relationship, bool) {
	rel, ok := r.Relationships[RelationRoleUser]
	if !ok || rel.ID == "" {
		return Relationship{}, false
	}
	return rel, true
}

// RepositoryPatch はリポジトリの部分更新内容を表す。
// nilフィールドは変更しない。repo_nameとrepo_templateは更新対象外。
type RepositoryPatch struct {
	ExpectedPracticeFrequency *ExpectedPracticeFrequency
	IsReminderEnabled         *bool
	TestOK                    *bool
	Relationships             map[string]Relationship
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (p RepositoryPatch) IsEmpty() bool {
	return p.ExpectedPracticeFrequency == nil &&
		p.IsReminderEnabled == nil &&
		p.TestOK == nil &&
		p.Relationships == nil
}

// UnlinkedRepository はユーザー側の逆参照が欠落しているリポジトリを表す。
type UnlinkedRepository struct {
	RepositoryID string
	RepoName     string
	UserID       string
}
