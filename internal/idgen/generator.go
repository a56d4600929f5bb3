// Package idgen はリポジトリ名と提出IDの払い出しを提供する。
package idgen

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

// repoIDBytes はリポジトリ名の元となる乱数のバイト数。16桁の16進文字列になる。
const repoIDBytes = 8

// Generator は識別子生成のインターフェース。
// 共有状態を持たず、複数リクエストから並行に呼び出してよい。
type Generator interface {
	// NewRepoID は16桁の小文字16進文字列のリポジトリ名を返す。
	NewRepoID() string
	// NewSubmissionID はUUID形式の提出IDを返す。
	NewSubmissionID() string
}

// Random は暗号論的乱数を使うGeneratorの実装。
// 一意性は確率的にのみ保証され、衝突時のリトライは行わない。
type Random struct{}

// NewRepoID は16桁の小文字16進文字列のリポジトリ名を返す。
func (Random) NewRepoID() string {
	b := make([]byte, repoIDBytes)
	// crypto/rand.Readは失敗しない（Go 1.24以降、失敗時はプロセスを停止する）
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// NewSubmissionID はランダム（v4）UUIDの文字列表現を返す。
func (Random) NewSubmissionID() string {
	return uuid.NewString()
}

var _ Generator = Random{}
