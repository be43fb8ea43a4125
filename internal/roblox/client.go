// Package roblox はゲーム側アカウントディレクトリAPIとの連携機能を提供する。
// ハンドル名・IDによるアカウント検索とプロフィール文の取得を含む。
//
// このパッケージはコラボレータ境界であり、外部APIの全ての失敗
// （タイムアウト、不正なJSON、非2xx応答）はここで捕捉して
// 「見つからない」(nil, nil) に正規化する。トランスポート層のエラーが
// 呼び出し元へ素のまま伝播することはない。
package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
)

// DirectoryUser はディレクトリ検索APIが返すアカウントの基本情報。
type DirectoryUser struct {
	ID     int64
	Handle string
}

// Profile はID検索APIが返すアカウントの詳細情報。
type Profile struct {
	ID     int64
	Handle string
	Bio    string
}

// Client はアカウントディレクトリAPIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientにはタイムアウト設定済みのクライアントを渡すこと。
func NewClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// lookupRequest はハンドル名検索APIのリクエストボディ。
type lookupRequest struct {
	Usernames          []string `json:"usernames"`
	ExcludeBannedUsers bool     `json:"excludeBannedUsers"`
}

// lookupResponse はハンドル名検索APIのレスポンスボディ。
type lookupResponse struct {
	Data []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"data"`
}

// LookupByHandle はハンドル名でアカウントを検索する。
// 見つからない場合、およびAPI呼び出しが失敗した場合はnilを返す。
func (c *Client) LookupByHandle(ctx context.Context, handle string) (*DirectoryUser, error) {
	reqBody, err := json.Marshal(lookupRequest{
		Usernames:          []string{handle},
		ExcludeBannedUsers: true,
	})
	if err != nil {
		return nil, fmt.Errorf("リクエストボディの生成に失敗しました: %w", err)
	}

	url := c.baseURL + "/v1/usernames/users"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	body, ok := c.do(req, "directory_lookup", handle)
	if !ok {
		return nil, nil
	}

	var result lookupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn("ディレクトリAPIのレスポンスのパースに失敗しました",
			slog.String("handle", handle),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	// 欠損フィールドは「見つからない」として扱う
	if len(result.Data) == 0 || result.Data[0].ID == 0 || result.Data[0].Name == "" {
		return nil, nil
	}

	return &DirectoryUser{
		ID:     result.Data[0].ID,
		Handle: result.Data[0].Name,
	}, nil
}

// profileResponse はID検索APIのレスポンスボディ。
type profileResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GetUserByID はIDでアカウントの詳細情報を取得する。
// プロフィール文（Bio）を含む。見つからない場合、および
// API呼び出しが失敗した場合はnilを返す。
func (c *Client) GetUserByID(ctx context.Context, id int64) (*Profile, error) {
	url := fmt.Sprintf("%s/v1/users/%d", c.baseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	body, ok := c.do(req, "directory_get_by_id", fmt.Sprintf("%d", id))
	if !ok {
		return nil, nil
	}

	var result profileResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn("ディレクトリAPIのレスポンスのパースに失敗しました",
			slog.Int64("account_id", id),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	// 欠損フィールドは「見つからない」として扱う
	if result.ID == 0 || result.Name == "" {
		return nil, nil
	}

	return &Profile{
		ID:     result.ID,
		Handle: result.Name,
		Bio:    result.Description,
	}, nil
}

// do はHTTPリクエストを実行し、成功時はレスポンスボディを返す。
// 失敗は全てログに記録して ok=false を返す（正規化）。
// タイムアウトは他のトランスポート失敗と区別してログに残す。
func (c *Client) do(req *http.Request, operation, subject string) ([]byte, bool) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("外部APIの呼び出しがタイムアウトしました",
				slog.String("operation", operation),
				slog.String("subject", subject),
			)
		} else {
			c.logger.Warn("外部APIの呼び出しに失敗しました",
				slog.String("operation", operation),
				slog.String("subject", subject),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("外部APIがエラーステータスを返しました",
			slog.String("operation", operation),
			slog.String("subject", subject),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("レスポンスボディの読み取りに失敗しました",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	return body, true
}

// isTimeout はエラーがタイムアウト起因かを判定する。
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
