package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/stashlink/internal/middleware"
	"github.com/hitoshi/stashlink/internal/payload"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	APIKey            string
	RateLimiter       *middleware.RateLimiter

	// 署名付きペイロード
	Authenticator     *payload.Authenticator
	PayloadMaxAge     time.Duration
	RejectionRecorder middleware.RejectionRecorder

	// メトリクス
	StatusRecorder middleware.HTTPStatusRecorder
	MetricsHandler http.Handler

	// サービス
	VerifyService  VerifyServiceInterface
	TradingService TradingServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS
//
// その上で、読み取り系・チャレンジ系ルートはAPIキー認証とAPI全般レート制限、
// 預け入れ・引き出し確定の書き込み系ルートはHMAC署名検証と引き出しレート制限を通る。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	if deps.StatusRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.StatusRecorder))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	verifyHandler := NewVerifyHandler(deps.VerifyService)
	tradingHandler := NewTradingHandler(deps.TradingService)

	// --- 認証不要のルート ---

	r.Get("/health", handleHealth)

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIキー認証が必要なルート ---
	// ミドルウェアスタック: APIKey → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAPIKeyMiddleware(deps.APIKey))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// アカウント連携検証
		r.Route("/api/verify", func(r chi.Router) {
			r.Get("/accounts", verifyHandler.GetAccount)
			r.Get("/accounts/{id}/avatar", verifyHandler.GetAvatar)
			r.Post("/challenge", verifyHandler.IssueChallenge)
			r.Post("/challenge/confirm", verifyHandler.ConfirmChallenge)
		})

		// 取引の読み取り系と引き出しセッション
		r.Route("/api/trading", func(r chi.Router) {
			r.Get("/inventory/{handle}", tradingHandler.Inventory)
			r.Get("/accounts/verified/{id}", tradingHandler.CheckVerified)
			r.Get("/stats", tradingHandler.Stats)

			// セッション作成は引き出し専用レート制限を追加
			r.With(deps.RateLimiter.WithdrawMiddleware()).
				Post("/withdraw/session", tradingHandler.CreateSession)
			r.Get("/withdraw/session/{id}", tradingHandler.GetSession)
		})
	})

	// --- HMAC署名検証が必要なルート ---
	// ミドルウェアスタック: Signature → RateLimit(Withdraw)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSignatureMiddleware(deps.Authenticator, deps.PayloadMaxAge, deps.RejectionRecorder))
		r.Use(deps.RateLimiter.WithdrawMiddleware())

		r.Post("/api/trading/deposit", tradingHandler.Deposit)
		r.Post("/api/trading/withdraw/confirm", tradingHandler.ConfirmWithdrawal)
	})

	return r
}

// handleHealth はヘルスチェックエンドポイント。
// GET /health
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
