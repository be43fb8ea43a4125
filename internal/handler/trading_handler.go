package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/stashlink/internal/custody"
	"github.com/hitoshi/stashlink/internal/middleware"
	"github.com/hitoshi/stashlink/internal/model"
)

// TradingServiceInterface は取引ハンドラーが必要とするサービスインターフェース。
type TradingServiceInterface interface {
	// Deposit はアイテムの預け入れを記録する。
	Deposit(ctx context.Context, handle string, items []custody.Item) (*model.TradeRecord, error)
	// Inventory はアカウントの預かりアイテムを返す。
	Inventory(ctx context.Context, handle string) ([]*model.InventoryItem, error)
	// CreateWithdrawalSession は引き出しセッションを作成する。
	CreateWithdrawalSession(ctx context.Context, accountID int64, items []custody.Item) (*model.WithdrawalSession, error)
	// GetWithdrawalSession はアクティブなセッションを返す。
	GetWithdrawalSession(ctx context.Context, accountID int64) (*model.WithdrawalSession, error)
	// ConfirmWithdrawal は引き出しを確定する。
	ConfirmWithdrawal(ctx context.Context, accountID int64) (*model.TradeRecord, error)
	// CheckVerified は検証済み連携の有無を返す。
	CheckVerified(ctx context.Context, accountID int64) (bool, error)
	// Stats はシステム全体の統計情報を返す。
	Stats(ctx context.Context) (*model.Stats, error)
}

// TradingHandler は預かりアイテム取引のHTTPハンドラー。
type TradingHandler struct {
	service TradingServiceInterface
}

// NewTradingHandler はTradingHandlerを生成する。
func NewTradingHandler(service TradingServiceInterface) *TradingHandler {
	return &TradingHandler{service: service}
}

// createSessionRequest はセッション作成リクエストのボディ。
type createSessionRequest struct {
	AccountID int64          `json:"accountId"`
	Items     []custody.Item `json:"items"`
}

// depositPayload は署名付き預け入れペイロードのボディ部分。
type depositPayload struct {
	Handle string         `json:"username"`
	Items  []custody.Item `json:"items"`
}

// confirmWithdrawalPayload は署名付き引き出し確定ペイロードのボディ部分。
type confirmWithdrawalPayload struct {
	AccountID int64 `json:"userId"`
}

// sessionResponse は引き出しセッションのAPIレスポンス。
type sessionResponse struct {
	AccountID int64          `json:"accountId"`
	Items     []custody.Item `json:"items"`
	CreatedAt time.Time      `json:"createdAt"`
	ExpiresAt time.Time      `json:"expiresAt"`
}

// tradeResponse は取引記録のAPIレスポンス。
type tradeResponse struct {
	ID        string `json:"id"`
	AccountID int64  `json:"accountId"`
	TradeType string `json:"tradeType"`
	Status    string `json:"status"`
}

// inventoryItemResponse は預かりアイテムのAPIレスポンス。
type inventoryItemResponse struct {
	ID       string `json:"id"`
	ItemName string `json:"itemName"`
	GameName string `json:"gameName"`
	Quantity int    `json:"quantity"`
	AssetID  string `json:"assetId"`
	Holder   string `json:"holder"`
}

// verifiedResponse は検証済み連携確認のAPIレスポンス。
type verifiedResponse struct {
	AccountID int64 `json:"accountId"`
	Verified  bool  `json:"verified"`
}

// statsResponse は統計情報のAPIレスポンス。
type statsResponse struct {
	TotalAccounts  int `json:"totalAccounts"`
	VerifiedLinks  int `json:"verifiedLinks"`
	TotalItems     int `json:"totalItems"`
	ActiveSessions int `json:"activeSessions"`
}

// toSessionResponse はドメインモデルをAPIレスポンスに変換する。
// ItemsJSONのパースに失敗した場合は空のアイテム一覧を返す。
func toSessionResponse(session *model.WithdrawalSession) sessionResponse {
	var items []custody.Item
	_ = json.Unmarshal([]byte(session.ItemsJSON), &items)
	return sessionResponse{
		AccountID: session.AccountID,
		Items:     items,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	}
}

// toTradeResponse はドメインモデルをAPIレスポンスに変換する。
func toTradeResponse(record *model.TradeRecord) tradeResponse {
	return tradeResponse{
		ID:        record.ID,
		AccountID: record.AccountID,
		TradeType: string(record.TradeType),
		Status:    string(record.Status),
	}
}

// CreateSession は引き出しセッションの作成を処理する。
// POST /api/trading/withdraw/session
func (h *TradingHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	session, err := h.service.CreateWithdrawalSession(r.Context(), req.AccountID, req.Items)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toSessionResponse(session))
}

// GetSession は引き出しセッションの取得を処理する。
// GET /api/trading/withdraw/session/{id}
func (h *TradingHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "idは数値で指定してください。",
			Category: "validation",
			Action:   "正しいアカウントIDを指定してください。",
		})
		return
	}

	session, err := h.service.GetWithdrawalSession(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toSessionResponse(session))
}

// ConfirmWithdrawal は署名付きペイロードによる引き出し確定を処理する。
// POST /api/trading/withdraw/confirm
func (h *TradingHandler) ConfirmWithdrawal(w http.ResponseWriter, r *http.Request) {
	var body confirmWithdrawalPayload
	if !decodeSignedPayload(w, r, &body) {
		return
	}

	record, err := h.service.ConfirmWithdrawal(r.Context(), body.AccountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toTradeResponse(record))
}

// Deposit は署名付きペイロードによる預け入れを処理する。
// POST /api/trading/deposit
func (h *TradingHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var body depositPayload
	if !decodeSignedPayload(w, r, &body) {
		return
	}

	record, err := h.service.Deposit(r.Context(), body.Handle, body.Items)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toTradeResponse(record))
}

// Inventory は預かりアイテム一覧の取得を処理する。
// GET /api/trading/inventory/{handle}
func (h *TradingHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")

	items, err := h.service.Inventory(r.Context(), handle)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]inventoryItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, inventoryItemResponse{
			ID:       item.ID,
			ItemName: item.ItemName,
			GameName: item.GameName,
			Quantity: item.Quantity,
			AssetID:  item.AssetID,
			Holder:   item.Holder,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// CheckVerified は検証済み連携の確認を処理する。
// GET /api/trading/accounts/verified/{id}
func (h *TradingHandler) CheckVerified(w http.ResponseWriter, r *http.Request) {
	accountID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "idは数値で指定してください。",
			Category: "validation",
			Action:   "正しいアカウントIDを指定してください。",
		})
		return
	}

	verified, err := h.service.CheckVerified(r.Context(), accountID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(verifiedResponse{AccountID: accountID, Verified: verified})
}

// Stats は統計情報の取得を処理する。
// GET /api/trading/stats
func (h *TradingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statsResponse{
		TotalAccounts:  stats.TotalAccounts,
		VerifiedLinks:  stats.VerifiedLinks,
		TotalItems:     stats.TotalItems,
		ActiveSessions: stats.ActiveSessions,
	})
}

// decodeSignedPayload は署名検証済みペイロードをコンテキストから取り出し、
// 指定の構造体にデコードする。失敗時はエラーレスポンスを書き込みfalseを返す。
func decodeSignedPayload(w http.ResponseWriter, r *http.Request, dst any) bool {
	p, err := middleware.PayloadFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewInvalidSignatureError("署名検証を経由していません"))
		return false
	}

	raw, err := json.Marshal(p)
	if err != nil {
		middleware.WriteInternalServerError(w)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		writeInvalidRequestError(w)
		return false
	}
	return true
}
