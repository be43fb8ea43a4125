package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/hitoshi/stashlink/internal/model"
)

// apiKeyHeader はAPIキーを運ぶリクエストヘッダー名。
const apiKeyHeader = "X-API-Key"

// NewAPIKeyMiddleware はAPIキーによる認証ミドルウェアを返す。
// キーの比較は定数時間で行い、タイミング側波路からキーを守る。
func NewAPIKeyMiddleware(apiKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(apiKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
				slog.Warn("APIキーの検証に失敗しました",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, &model.APIError{
					Code:     "UNAUTHORIZED",
					Message:  "APIキーが無効です。",
					Category: "auth",
					Action:   "X-API-Keyヘッダーに正しいキーを設定してください。",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
