// Package handler はHTTP APIのルーティングとハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/stashlink/internal/middleware"
	"github.com/hitoshi/stashlink/internal/model"
)

// VerifyServiceInterface は検証ハンドラーが必要とするサービスインターフェース。
type VerifyServiceInterface interface {
	// ResolveByHandle はハンドル名からアカウントを解決する。
	ResolveByHandle(ctx context.Context, handle string) (*model.Account, error)
	// ResolveByID はIDからアカウントを解決する。
	ResolveByID(ctx context.Context, id int64) (*model.Account, error)
	// IssueChallenge は検証チャレンジを発行する。
	IssueChallenge(ctx context.Context, requesterID, handle string) (*model.Challenge, *model.Account, error)
	// ConfirmChallenge は検証チャレンジの成立を判定する。
	ConfirmChallenge(ctx context.Context, requesterID string) (*model.Account, error)
	// FetchAvatar はアバターサムネイルのURLを取得する。
	FetchAvatar(ctx context.Context, accountID int64, size string) (string, error)
}

// VerifyHandler はアカウント連携検証のHTTPハンドラー。
type VerifyHandler struct {
	service VerifyServiceInterface
}

// NewVerifyHandler はVerifyHandlerを生成する。
func NewVerifyHandler(service VerifyServiceInterface) *VerifyHandler {
	return &VerifyHandler{service: service}
}

// defaultAvatarSize はアバター取得のデフォルトサイズ。
const defaultAvatarSize = "150x150"

// issueChallengeRequest はチャレンジ発行リクエストのボディ。
type issueChallengeRequest struct {
	RequesterID string `json:"requesterId"`
	Handle      string `json:"handle"`
}

// confirmChallengeRequest はチャレンジ確認リクエストのボディ。
type confirmChallengeRequest struct {
	RequesterID string `json:"requesterId"`
}

// challengeResponse はチャレンジ発行のAPIレスポンス。
type challengeResponse struct {
	RequesterID string `json:"requesterId"`
	AccountID   int64  `json:"accountId"`
	Handle      string `json:"handle"`
	Code        string `json:"code"`
}

// accountResponse はアカウント情報のAPIレスポンス。
type accountResponse struct {
	ID           int64  `json:"id"`
	Handle       string `json:"handle"`
	Bio          string `json:"bio,omitempty"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
}

// confirmResponse はチャレンジ確認成功のAPIレスポンス。
type confirmResponse struct {
	AccountID int64  `json:"accountId"`
	Handle    string `json:"handle"`
	Verified  bool   `json:"verified"`
}

// avatarResponse はアバター取得のAPIレスポンス。
type avatarResponse struct {
	AccountID int64  `json:"accountId"`
	URL       string `json:"url"`
}

// toAccountResponse はドメインモデルをAPIレスポンスに変換する。
func toAccountResponse(account *model.Account) accountResponse {
	return accountResponse{
		ID:           account.ID,
		Handle:       account.Handle,
		Bio:          account.Bio,
		ThumbnailURL: account.ThumbnailURL,
	}
}

// IssueChallenge はチャレンジ発行を処理する。
// POST /api/verify/challenge
func (h *VerifyHandler) IssueChallenge(w http.ResponseWriter, r *http.Request) {
	var req issueChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}
	if req.RequesterID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "requesterIdが指定されていません。",
			Category: "validation",
			Action:   "requesterIdを指定してください。",
		})
		return
	}

	challenge, account, err := h.service.IssueChallenge(r.Context(), req.RequesterID, req.Handle)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(challengeResponse{
		RequesterID: challenge.RequesterID,
		AccountID:   challenge.AccountID,
		Handle:      account.Handle,
		Code:        challenge.CodePhrase,
	})
}

// ConfirmChallenge はチャレンジ確認を処理する。
// POST /api/verify/challenge/confirm
func (h *VerifyHandler) ConfirmChallenge(w http.ResponseWriter, r *http.Request) {
	var req confirmChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestError(w)
		return
	}

	account, err := h.service.ConfirmChallenge(r.Context(), req.RequesterID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(confirmResponse{
		AccountID: account.ID,
		Handle:    account.Handle,
		Verified:  true,
	})
}

// GetAccount はハンドル名またはIDでのアカウント解決を処理する。
// GET /api/verify/accounts?handle=... または ?id=...
func (h *VerifyHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	if handle := r.URL.Query().Get("handle"); handle != "" {
		account, err := h.service.ResolveByHandle(r.Context(), handle)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toAccountResponse(account))
		return
	}

	if rawID := r.URL.Query().Get("id"); rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "idは数値で指定してください。",
				Category: "validation",
				Action:   "正しいアカウントIDを指定してください。",
			})
			return
		}
		account, err := h.service.ResolveByID(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(toAccountResponse(account))
		return
	}

	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "handleまたはidのいずれかを指定してください。",
		Category: "validation",
		Action:   "クエリパラメータを確認してください。",
	})
}

// GetAvatar はアバターサムネイルの取得を処理する。
// GET /api/verify/accounts/{id}/avatar
func (h *VerifyHandler) GetAvatar(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "idは数値で指定してください。",
			Category: "validation",
			Action:   "正しいアカウントIDを指定してください。",
		})
		return
	}

	size := r.URL.Query().Get("size")
	if size == "" {
		size = defaultAvatarSize
	}

	url, err := h.service.FetchAvatar(r.Context(), id, size)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(avatarResponse{AccountID: id, URL: url})
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// writeInvalidRequestError はリクエストボディ不正の統一レスポンスを書き込む。
func writeInvalidRequestError(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeAccountNotFound, model.ErrCodeVerificationNotFound, model.ErrCodeSessionNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidUsername, model.ErrCodeCodeMismatch, model.ErrCodeItemsRequired:
		return http.StatusBadRequest
	case model.ErrCodeAlreadyVerified, model.ErrCodeSessionExists:
		return http.StatusConflict
	case model.ErrCodeThumbnailUnavailable:
		return http.StatusBadGateway
	case model.ErrCodeInvalidSignature:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
