// Package model はドメインモデルを定義する。
package model

// DocumentType はRelationshipの参照先ドキュメントの種別を表す。
type DocumentType string

const (
	// DocumentTypeRepository はリポジトリドキュメントを示す。
	DocumentTypeRepository DocumentType = "repository"
	// DocumentTypeUser はユーザードキュメントを示す。
	DocumentTypeUser DocumentType = "user"
	// DocumentTypeCourse はコースドキュメントを示す。
	DocumentTypeCourse DocumentType = "course"
)

// Valid は定義済みのDocumentTypeかどうかを返す。
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypeRepository, DocumentTypeUser, DocumentTypeCourse:
		return true
	default:
		return false
	}
}

// Relationship は他ドキュメントへの型付き参照（ID + 種別）を表す。
// 参照先を値として埋め込まないため、ドキュメント間に所有の循環は生じない。
type Relationship struct {
	ID   string       `json:"id"`
	Type DocumentType `json:"type"`
}

// リポジトリドキュメントのrelationshipsマップで使用するロール名。
const (
	RelationRoleUser   = "user"
	RelationRoleCourse = "course"
)
