// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, verification, trading, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeAccountNotFound      = "ACCOUNT_NOT_FOUND"
	ErrCodeInvalidUsername      = "INVALID_USERNAME"
	ErrCodeVerificationNotFound = "VERIFICATION_NOT_FOUND"
	ErrCodeCodeMismatch         = "CODE_MISMATCH"
	ErrCodeAlreadyVerified      = "ALREADY_VERIFIED"
	ErrCodeThumbnailUnavailable = "THUMBNAIL_UNAVAILABLE"
	ErrCodeSessionExists        = "SESSION_EXISTS"
	ErrCodeSessionNotFound      = "SESSION_NOT_FOUND"
	ErrCodeItemsRequired        = "ITEMS_REQUIRED"
	ErrCodeInvalidSignature     = "INVALID_SIGNATURE"
)

// NewAccountNotFoundError はアカウント未検出エラーを生成する。
func NewAccountNotFoundError(handle string) *APIError {
	return &APIError{
		Code:     ErrCodeAccountNotFound,
		Message:  fmt.Sprintf("指定されたアカウントが見つかりません: %s", handle),
		Category: "verification",
		Action:   "ハンドル名のつづりを確認してください。",
	}
}

// NewInvalidUsernameError は無効なハンドル名エラーを生成する。
func NewInvalidUsernameError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidUsername,
		Message:  fmt.Sprintf("無効なハンドル名です: %s", reason),
		Category: "validation",
		Action:   "3〜20文字の英数字とアンダースコア（先頭・末尾以外、最大1個）で指定してください。",
	}
}

// NewVerificationNotFoundError は検証チャレンジ未検出エラーを生成する。
func NewVerificationNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeVerificationNotFound,
		Message:  "進行中の検証がありません。",
		Category: "verification",
		Action:   "先にチャレンジを発行してください。",
	}
}

// NewCodeMismatchError は認証コード不一致エラーを生成する。
func NewCodeMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeCodeMismatch,
		Message:  "認証コードがプロフィールに見つかりませんでした。",
		Category: "verification",
		Action:   "コード全体をプロフィール欄に貼り付けて保存したことを確認し、数分待ってから再度お試しください。",
	}
}

// NewAlreadyVerifiedError は検証済みエラーを生成する。
func NewAlreadyVerifiedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyVerified,
		Message:  "このユーザーは既に検証済みです。",
		Category: "verification",
		Action:   "検証済みのアカウント連携は変更できません。",
	}
}

// NewThumbnailUnavailableError はサムネイル取得失敗エラーを生成する。
func NewThumbnailUnavailableError(accountID int64) *APIError {
	return &APIError{
		Code:     ErrCodeThumbnailUnavailable,
		Message:  fmt.Sprintf("サムネイルを取得できませんでした: %d", accountID),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSessionExistsError はアクティブセッション重複エラーを生成する。
func NewSessionExistsError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionExists,
		Message:  "アクティブな引き出しセッションが既に存在します。",
		Category: "trading",
		Action:   "既存のセッションを完了するか、期限切れを待ってください。",
	}
}

// NewSessionNotFoundError はセッション未検出エラーを生成する。
func NewSessionNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeSessionNotFound,
		Message:  "アクティブな引き出しセッションがありません。",
		Category: "trading",
		Action:   "先に引き出しセッションを作成してください。",
	}
}

// NewItemsRequiredError はアイテム未指定エラーを生成する。
func NewItemsRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodeItemsRequired,
		Message:  "アイテムが指定されていません。",
		Category: "validation",
		Action:   "1件以上のアイテムを指定してください。",
	}
}

// NewInvalidSignatureError は署名検証失敗エラーを生成する。
func NewInvalidSignatureError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSignature,
		Message:  fmt.Sprintf("ペイロード署名の検証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "正しい共有シークレットで署名されたペイロードを送信してください。",
	}
}
