// Package security はアプリケーションのセキュリティ機能を提供する。
//
// BioSanitizerService はゲーム側プロフィール文をサニタイズし、
// タグ混入によるXSSリスクからAPI利用側を保護する。
// プロフィール文は平文として扱うため、bluemondayのStrictPolicyで
// 全てのHTMLタグを除去する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// BioSanitizerService はプロフィール文のサニタイズ機能のインターフェースを定義する。
// プロフィール文のキャッシュ保存前に使用される。
type BioSanitizerService interface {
	// Sanitize はプロフィール文から全てのHTMLタグを除去した平文を返す。
	// HTMLエンティティはデコードされ、前後の空白は取り除かれる。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawBio string) string
}

// bioSanitizer はBioSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type bioSanitizer struct {
	policy *bluemonday.Policy
}

// NewBioSanitizer はBioSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは許可タグを一切持たないため、script等の危険なタグを含む
// 全てのマークアップが除去される。
func NewBioSanitizer() *bioSanitizer {
	return &bioSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はプロフィール文から全てのHTMLタグを除去した平文を返す。
// StrictPolicyはタグ除去後にエンティティをエスケープするため、
// 認証コードの部分一致判定が壊れないようデコードして戻す。
func (s *bioSanitizer) Sanitize(rawBio string) string {
	if rawBio == "" {
		return ""
	}
	cleaned := s.policy.Sanitize(rawBio)
	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// compile-time interface check
var _ BioSanitizerService = (*bioSanitizer)(nil)
