package identity

import (
	"strings"

	"github.com/hitoshi/stashlink/internal/model"
)

// ValidateHandle はゲーム側ハンドル名の形式を検証する。
// 有効な形式: 3〜20文字の英数字とアンダースコア。アンダースコアは
// 先頭・末尾に置けず、最大1個まで。
// 外部APIへの問い合わせ前に呼び出し、明らかに不正な入力を弾く。
func ValidateHandle(handle string) error {
	if len(handle) < 3 {
		return model.NewInvalidUsernameError("短すぎます")
	}
	if len(handle) > 20 {
		return model.NewInvalidUsernameError("長すぎます")
	}
	for _, r := range handle {
		if !isHandleChar(r) {
			return model.NewInvalidUsernameError("使用できない文字が含まれています")
		}
	}
	if strings.HasPrefix(handle, "_") {
		return model.NewInvalidUsernameError("アンダースコアで始めることはできません")
	}
	if strings.HasSuffix(handle, "_") {
		return model.NewInvalidUsernameError("アンダースコアで終わることはできません")
	}
	if strings.Count(handle, "_") > 1 {
		return model.NewInvalidUsernameError("アンダースコアは1個までです")
	}
	return nil
}

// isHandleChar はハンドル名に使用可能な文字かを判定する。
func isHandleChar(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '_':
		return true
	default:
		return false
	}
}
