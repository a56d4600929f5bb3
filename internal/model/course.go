package model

// Course はテンプレートを提供するコースを表す。
// Slugはテンプレート名として使われる安定したキー。
type Course struct {
	ID            string
	Slug          string
	Name          string
	TesterURL     string
	Relationships []Relationship
}
