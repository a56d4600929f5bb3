// Package tester はテンプレート（コースslug）からテスターURLへの対応表を提供する。
package tester

import (
	"fmt"
	"strings"

	"github.com/hitoshi/coursegit/internal/model"
)

// DefaultURL は対応表に登録がない場合に使うテスターのエンドポイント。
const DefaultURL = "https://tester.dotcodeschool.com"

// Table はslugをキーとするテスターURLの対応表。
// 生成後は読み取り専用で、並行に参照してよい。
type Table struct {
	defaultURL string
	bySlug     map[string]string
}

// NewTable はTableを生成する。defaultURLが空の場合はDefaultURLを使う。
func NewTable(defaultURL string, bySlug map[string]string) *Table {
	if defaultURL == "" {
		defaultURL = DefaultURL
	}
	m := make(map[string]string, len(bySlug))
	for slug, url := range bySlug {
		m[slug] = url
	}
	return &Table{defaultURL: defaultURL, bySlug: m}
}

// Resolve はテンプレートに対応するテスターURLを返す。
// 優先順位: 対応表の登録 → コースドキュメントのtester_url → デフォルト。
func (t *Table) Resolve(slug string, course *model.Course) string {
	if url, ok := t.bySlug[slug]; ok {
		return url
	}
	if course != nil && course.TesterURL != "" {
		return course.TesterURL
	}
	return t.defaultURL
}

// ParseOverrides は "slug=url,slug=url" 形式の文字列を対応表に変換する。
func ParseOverrides(s string) (map[string]string, error) {
	m := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return m, nil
	}
	for _, pair := range strings.Split(s, ",") {
		slug, url, ok := strings.Cut(strings.TrimSpace(pair), "=")
		slug, url = strings.TrimSpace(slug), strings.TrimSpace(url)
		if !ok || slug == "" || url == "" {
			return nil, fmt.Errorf("テスターURLの指定が不正です: %q", pair)
		}
		m[slug] = url
	}
	return m, nil
}
