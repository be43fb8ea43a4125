package identity

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// codeWords は認証コードの語彙。16語からの16語選択で64ビットの
// エントロピーを持つ。語数が256の約数であるため、1バイトの剰余による
// 選択に偏りは生じない。
var codeWords = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday",
	"saturday", "sunday", "caramel", "fun", "files", "gate",
	"heart", "keep", "gravity", "farewell", "plastic",
}

const (
	// codeLength は認証コードの語数。
	codeLength = 16
	// codeSeparator は認証コードの語の区切り文字。
	codeSeparator = " "
)

// GenerateCodePhrase は暗号論的乱数から認証コードを生成する。
// 利用者はこのコードをゲーム側プロフィール欄に貼り付けて
// アカウントの所有を証明する。
func GenerateCodePhrase() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("乱数の取得に失敗しました: %w", err)
	}

	words := make([]string, codeLength)
	for i, b := range buf {
		words[i] = codeWords[int(b)%len(codeWords)]
	}
	return strings.Join(words, codeSeparator), nil
}
