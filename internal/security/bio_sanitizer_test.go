package security

import (
	"strings"
	"testing"
)

// TestSanitize_RemovesAllTags は全てのHTMLタグが除去されることを検証する。
func TestSanitize_RemovesAllTags(t *testing.T) {
	sanitizer := NewBioSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "scriptタグが除去される",
			input: `<script>alert("xss")</script>hello`,
			want:  "hello",
		},
		{
			name:  "pタグも平文化される",
			input: "<p>プロフィール文</p>",
			want:  "プロフィール文",
		},
		{
			name:  "aタグのテキストは残る",
			input: `<a href="https://evil.example.com">my profile</a>`,
			want:  "my profile",
		},
		{
			name:  "imgタグは痕跡なく消える",
			input: `before<img src="https://example.com/x.png">after`,
			want:  "beforeafter",
		},
		{
			name:  "タグなしの平文はそのまま",
			input: "monday tuesday caramel gate",
			want:  "monday tuesday caramel gate",
		},
		{
			name:  "空文字列は空文字列",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizer.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_PreservesCodePhrase は認証コードを含むプロフィール文の
// サニタイズ後もコードの部分一致判定が成立することを検証する。
func TestSanitize_PreservesCodePhrase(t *testing.T) {
	sanitizer := NewBioSanitizer()

	code := "monday tuesday wednesday caramel fun files gate heart keep gravity farewell plastic sunday friday saturday thursday"
	bio := "<b>My profile!</b> " + code + " <i>thanks</i>"

	got := sanitizer.Sanitize(bio)
	if !strings.Contains(got, code) {
		t.Errorf("Sanitize() = %q, コードフレーズが保持されていない", got)
	}
}

// TestSanitize_UnescapesEntities はHTMLエンティティがデコードされることを検証する。
func TestSanitize_UnescapesEntities(t *testing.T) {
	sanitizer := NewBioSanitizer()

	got := sanitizer.Sanitize("Tom &amp; Jerry &lt;3")
	if got != "Tom & Jerry <3" {
		t.Errorf("Sanitize() = %q, want %q", got, "Tom & Jerry <3")
	}
}

// TestSanitize_TrimsWhitespace は前後の空白が取り除かれることを検証する。
func TestSanitize_TrimsWhitespace(t *testing.T) {
	sanitizer := NewBioSanitizer()

	got := sanitizer.Sanitize("  <p>  hello  </p>  ")
	if got != "hello" {
		t.Errorf("Sanitize() = %q, want %q", got, "hello")
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	sanitizer := NewBioSanitizer()

	input := `<div>profile <script>x()</script>text</div>`
	first := sanitizer.Sanitize(input)
	second := sanitizer.Sanitize(first)

	if first != second {
		t.Errorf("Sanitize は冪等ではない: 1回目 %q, 2回目 %q", first, second)
	}
}
