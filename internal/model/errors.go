package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, repository, submission, course, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeInternal       = "INTERNAL_ERROR"
	ErrCodeRateLimited    = "RATE_LIMIT_EXCEEDED"
)

// NewNotFoundError は参照先が存在しない場合のエラーを生成する。
func NewNotFoundError(ref string) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定されたリソースが見つかりません: %s", ref),
		Category: "validation",
		Action:   "テンプレート名、リポジトリ名またはコースIDを確認してください。",
	}
}

// NewInvalidRequestError はリクエストの形式が不正な場合のエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "正しいJSON形式で必須項目を指定してください。",
	}
}

// NewInternalError は内部エラーのレスポンス用エラーを生成する。
// 詳細はログにのみ記録し、レスポンスには含めない。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// ErrorKind はコア処理のエラー種別を表す。
type ErrorKind string

const (
	// KindNotFound は参照されたコースやリポジトリが存在しないことを示す。
	KindNotFound ErrorKind = "not_found"
	// KindGitServer はGitサーバーへのプロビジョニング呼び出しが失敗したことを示す。
	KindGitServer ErrorKind = "git_server"
	// KindDatabase はストアのドライバが失敗を報告したことを示す。
	KindDatabase ErrorKind = "database"
	// KindInsertion は書き込みが成功したにもかかわらずIDを取得できなかったことを示す。
	KindInsertion ErrorKind = "insertion"
	// KindInvalidReference は指定された識別子が参照として不正な形式であることを示す。
	KindInvalidReference ErrorKind = "invalid_reference"
)

// 種別ごとの番兵エラー。errors.Is(err, model.ErrNotFound) の形で判定する。
var (
	ErrNotFound         = errors.New("not found")
	ErrGitServer        = errors.New("git server request failed")
	ErrDatabase         = errors.New("database operation failed")
	ErrInsertion        = errors.New("insertion error")
	ErrInvalidReference = errors.New("invalid reference")
)

// Op はエラーが発生したコア操作の名前。
type Op string

const (
	OpCreateRepository Op = "create_repository"
	OpGetRepository    Op = "get_repository"
	OpUpdateRepository Op = "update_repository"
	OpEnsureUserLink   Op = "ensure_user_link"
	OpCreateSubmission Op = "create_submission"
	OpListSubmissions  Op = "list_submissions"
	OpFetchCourse      Op = "fetch_course"
)

// OpError はリポジトリ作成・提出作成などのコア操作が返す共通のタグ付きエラー。
// レスポンス変換層はKindのみを見てHTTPステータスを決定する。
type OpError struct {
	Kind ErrorKind
	Op   Op
	Ref  string // 対象の識別子（テンプレート名、リポジトリ名など）
	Err  error
}

// NewOpError はOpErrorを生成する。
func NewOpError(op Op, kind ErrorKind, ref string, err error) *OpError {
	return &OpError{Kind: kind, Op: op, Ref: ref, Err: err}
}

// Error はerrorインターフェースを実装する。
func (e *OpError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Ref != "" {
		msg += fmt.Sprintf(" (%s)", e.Ref)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap は原因エラーを返す。
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is はKindに対応する番兵エラーとの比較を可能にする。
func (e *OpError) Is(target error) bool {
	return kindSentinel(e.Kind) == target
}

func kindSentinel(kind ErrorKind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindGitServer:
		return ErrGitServer
	case KindDatabase:
		return ErrDatabase
	case KindInsertion:
		return ErrInsertion
	case KindInvalidReference:
		return ErrInvalidReference
	default:
		return nil
	}
}

// KindOf はエラーチェーン中のOpErrorの種別を返す。OpErrorを含まない場合は空文字を返す。
func KindOf(err error) ErrorKind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}
