package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/coursegit/internal/model"
)

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// encodeRelationList はRelationshipのスライスをJSONB用のバイト列に変換する。
// nilは空配列として保存する。
func encodeRelationList(rels []model.Relationship) ([]byte, error) {
	if rels == nil {
		rels = []model.Relationship{}
	}
	b, err := json.Marshal(rels)
	if err != nil {
		return nil, fmt.Errorf("relationshipsのエンコードに失敗しました: %w", err)
	}
	return b, nil
}

// decodeRelationList はJSONBのバイト列をRelationshipのスライスに変換する。
func decodeRelationList(b []byte) ([]model.Relationship, error) {
	rels := []model.Relationship{}
	if len(b) == 0 {
		return rels, nil
	}
	if err := json.Unmarshal(b, &rels); err != nil {
		return nil, fmt.Errorf("relationshipsのデコードに失敗しました: %w", err)
	}
	return rels, nil
}

// encodeRelationMap はロール名をキーとするRelationshipのマップをJSONB用のバイト列に変換する。
func encodeRelationMap(rels map[string]model.Relationship) ([]byte, error) {
	if rels == nil {
		rels = map[string]model.Relationship{}
	}
	b, err := json.Marshal(rels)
	if err != nil {
		return nil, fmt.Errorf("relationshipsのエンコードに失敗しました: %w", err)
	}
	return b, nil
}

// decodeRelationMap はJSONBのバイト列をロール名をキーとするマップに変換する。
func decodeRelationMap(b []byte) (map[string]model.Relationship, error) {
	rels := map[string]model.Relationship{}
	if len(b) == 0 {
		return rels, nil
	}
	if err := json.Unmarshal(b, &rels); err != nil {
		return nil, fmt.Errorf("relationshipsのデコードに失敗しました: %w", err)
	}
	return rels, nil
}

// isUUID はストアが払い出すID（UUID）として妥当な形式かどうかを返す。
// 不正な形式の値をuuid型の列と比較するとドライバエラーになるため、問い合わせ前に判定する。
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
