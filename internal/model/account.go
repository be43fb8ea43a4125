// Package model はドメインモデルを定義する。
package model

import "time"

// Account はゲーム側アカウントのキャッシュ済みメタデータを表す。
// IDが安定した主キーであり、Handleはユーザーが変更可能な表示名。
// Handleの一意性は大文字小文字を区別しない。
type Account struct {
	ID           int64
	Handle       string
	Bio          string
	ThumbnailURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Challenge はチャット側ユーザーとゲーム側アカウントの紐付け検証を表す。
// RequesterIDごとに最大1件のみ存在し、未検証のまま再発行された場合は上書きされる。
// Verified=trueになった行は終端状態であり、以後変更されない。
type Challenge struct {
	RequesterID string
	AccountID   int64
	CodePhrase  string
	Verified    bool
	CreatedAt   time.Time
	VerifiedAt  *time.Time
}

// ThumbnailState はサムネイル生成APIの処理状態を表す。
type ThumbnailState string

const (
	// ThumbnailStateCompleted は画像生成が完了した状態。
	ThumbnailStateCompleted ThumbnailState = "Completed"
	// ThumbnailStateProcessing はサーバー側で生成処理中の状態。
	ThumbnailStateProcessing ThumbnailState = "Processing"
)
