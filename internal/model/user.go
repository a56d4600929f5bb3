package model

// User はコースを受講するユーザーを表す。
// Repositoriesには所有するリポジトリへの参照が追加順に並ぶ。
type User struct {
	ID            string
	Name          string
	Repositories  []Relationship
	Relationships []Relationship
}

// HasRepository は指定リポジトリIDへの参照を保持しているかどうかを返す。
func (u *User) HasRepository(repositoryID string) bool {
	for _, rel := range u.Repositories {
		if rel.ID == repositoryID && rel.Type == DocumentTypeRepository {
			return true
		}
	}
	return false
}
