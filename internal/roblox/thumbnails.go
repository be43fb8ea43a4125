package roblox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/hitoshi/stashlink/internal/model"
)

// Thumbnail はサムネイル生成APIの応答を表す。
// APIはサーバー側で非同期に画像を生成するため、
// 完了前はStateがProcessingとなりURLは空になる。
type Thumbnail struct {
	State model.ThumbnailState
	URL   string
}

// ThumbnailClient はサムネイル生成APIのクライアント。
type ThumbnailClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
}

// NewThumbnailClient はThumbnailClientの新しいインスタンスを生成する。
func NewThumbnailClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *ThumbnailClient {
	return &ThumbnailClient{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

// thumbnailResponse はサムネイルAPIのレスポンスボディ。
type thumbnailResponse struct {
	Data []struct {
		State    string `json:"state"`
		ImageURL string `json:"imageUrl"`
	} `json:"data"`
}

// RequestThumbnail は指定アカウントのアバターサムネイルを要求する。
// 生成が完了していない場合はState=Processingの結果を返す。
// API呼び出しが失敗した場合はnilを返す（正規化）。
func (c *ThumbnailClient) RequestThumbnail(ctx context.Context, accountID int64, size string) (*Thumbnail, error) {
	reqURL, err := url.Parse(c.baseURL + "/v1/users/avatar-headshot")
	if err != nil {
		return nil, fmt.Errorf("エンドポイントURLのパースに失敗しました: %w", err)
	}

	q := reqURL.Query()
	q.Set("userIds", fmt.Sprintf("%d", accountID))
	q.Set("size", size)
	q.Set("format", "Png")
	q.Set("isCircular", "false")
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}

	body, ok := c.do(req, accountID)
	if !ok {
		return nil, nil
	}

	var result thumbnailResponse
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn("サムネイルAPIのレスポンスのパースに失敗しました",
			slog.Int64("account_id", accountID),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	if len(result.Data) == 0 {
		return nil, nil
	}

	switch result.Data[0].State {
	case string(model.ThumbnailStateCompleted):
		if result.Data[0].ImageURL == "" {
			return nil, nil
		}
		return &Thumbnail{State: model.ThumbnailStateCompleted, URL: result.Data[0].ImageURL}, nil
	case string(model.ThumbnailStateProcessing):
		return &Thumbnail{State: model.ThumbnailStateProcessing}, nil
	default:
		// Blocked等の未知の状態は取得失敗として扱う
		return nil, nil
	}
}

// do はHTTPリクエストを実行し、成功時はレスポンスボディを返す。
// 失敗は全てログに記録して ok=false を返す（正規化）。
func (c *ThumbnailClient) do(req *http.Request, accountID int64) ([]byte, bool) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("サムネイルAPIの呼び出しがタイムアウトしました",
				slog.Int64("account_id", accountID),
			)
		} else {
			c.logger.Warn("サムネイルAPIの呼び出しに失敗しました",
				slog.Int64("account_id", accountID),
				slog.String("error", err.Error()),
			)
		}
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("サムネイルAPIがエラーステータスを返しました",
			slog.Int64("account_id", accountID),
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("レスポンスボディの読み取りに失敗しました",
			slog.Int64("account_id", accountID),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	return body, true
}
