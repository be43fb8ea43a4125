package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/stashlink/internal/model"
	"github.com/hitoshi/stashlink/internal/payload"
)

// maxPayloadBytes は署名付きペイロードの最大サイズ。
const maxPayloadBytes = 1 << 20

// contextKey はコンテキスト値の衝突を避けるための型。
type contextKey string

// payloadContextKey は検証済みペイロードを保持するコンテキストキー。
const payloadContextKey contextKey = "signed_payload"

// ErrNoPayload はコンテキストに検証済みペイロードが存在しない。
var ErrNoPayload = errors.New("検証済みペイロードがコンテキストに存在しません")

// ContextWithPayload は検証済みペイロードをコンテキストに載せる。
func ContextWithPayload(ctx context.Context, p payload.Payload) context.Context {
	return context.WithValue(ctx, payloadContextKey, p)
}

// PayloadFromContext はコンテキストから検証済みペイロードを取り出す。
// NewSignatureMiddlewareを通過したリクエストでのみ利用できる。
func PayloadFromContext(ctx context.Context) (payload.Payload, error) {
	p, ok := ctx.Value(payloadContextKey).(payload.Payload)
	if !ok {
		return nil, ErrNoPayload
	}
	return p, nil
}

// RejectionRecorder はペイロード拒否のメトリクスを記録するインターフェース。
type RejectionRecorder interface {
	RecordPayloadRejection(reason string)
}

// NewSignatureMiddleware は署名付きペイロードの検証ミドルウェアを返す。
// リクエストボディのJSONをペイロードとして検証し、成功時は検証済み
// ペイロードをコンテキストに載せて後続ハンドラーへ渡す。
// 失敗は理由別にメトリクスへ記録し、401で拒否する。
func NewSignatureMiddleware(auth *payload.Authenticator, maxAge time.Duration, recorder RejectionRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes))
			if err != nil {
				WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidSignatureError("リクエストボディを読み取れません"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var p payload.Payload
			if err := json.Unmarshal(body, &p); err != nil {
				recorder.RecordPayloadRejection("malformed")
				WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidSignatureError("JSONのパースに失敗しました"))
				return
			}

			if err := auth.Verify(p, maxAge, time.Now()); err != nil {
				reason := rejectionReason(err)
				recorder.RecordPayloadRejection(reason)
				slog.Warn("ペイロード署名の検証に失敗しました",
					slog.String("path", r.URL.Path),
					slog.String("reason", reason),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewInvalidSignatureError(reason))
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithPayload(r.Context(), p)))
		})
	}
}

// rejectionReason は検証エラーをメトリクスとレスポンス用の理由に分類する。
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, payload.ErrMissingSignature):
		return "missing_signature"
	case errors.Is(err, payload.ErrMissingTimestamp):
		return "missing_timestamp"
	case errors.Is(err, payload.ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, payload.ErrStale):
		return "stale"
	case errors.Is(err, payload.ErrFutureTimestamp):
		return "future_timestamp"
	default:
		return "unknown"
	}
}
