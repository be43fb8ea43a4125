// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/stashlink/internal/model"
)

// AccountRepository はアカウントキャッシュの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Account, error)

	// FindByHandle はハンドル名でアカウントを検索する。
	// 大文字小文字を区別しない。見つからない場合はnilを返す。
	FindByHandle(ctx context.Context, handle string) (*model.Account, error)

	// Upsert はアカウントを単一のINSERT ON CONFLICTで原子的に作成または更新する。
	// 2回の呼び出しに分かれたread-modify-writeは行わない。
	Upsert(ctx context.Context, account *model.Account) error

	// UpdateBio はキャッシュ済みプロフィール文を更新する。
	UpdateBio(ctx context.Context, id int64, bio string) error

	// UpdateThumbnailURL はキャッシュ済みサムネイルURLを更新する。
	UpdateThumbnailURL(ctx context.Context, id int64, url string) error

	// Count は全アカウント数を返す。
	Count(ctx context.Context) (int, error)
}

// ChallengeRepository は検証チャレンジの永続化インターフェース。
type ChallengeRepository interface {
	// FindByRequesterID はリクエスターIDでチャレンジを取得する。見つからない場合はnilを返す。
	FindByRequesterID(ctx context.Context, requesterID string) (*model.Challenge, error)

	// Upsert はチャレンジをリクエスターIDをキーに原子的に作成または上書きする。
	// verified=trueの既存行はSQLレベルで上書きされない（終端状態の保護）。
	Upsert(ctx context.Context, challenge *model.Challenge) error

	// MarkVerified はチャレンジを検証済みにして検証時刻を記録する。
	MarkVerified(ctx context.Context, requesterID string, verifiedAt time.Time) error

	// ExistsVerifiedForAccount は指定アカウントに対する検証済みチャレンジの有無を返す。
	ExistsVerifiedForAccount(ctx context.Context, accountID int64) (bool, error)

	// CountVerified は検証済みチャレンジ数を返す。
	CountVerified(ctx context.Context) (int, error)
}

// InventoryRepository は預かりアイテムの永続化インターフェース。
type InventoryRepository interface {
	// Add はアイテムを追加する。
	Add(ctx context.Context, item *model.InventoryItem) error

	// ListByAccountID はアカウントの預かりアイテムを新しい順に返す。
	ListByAccountID(ctx context.Context, accountID int64) ([]*model.InventoryItem, error)

	// RemoveItems は指定アイテム名の行を最大quantity件削除する（引き出し用）。
	RemoveItems(ctx context.Context, accountID int64, itemName string, quantity int) error

	// Count は全アイテム数を返す。
	Count(ctx context.Context) (int, error)
}

// TradeRepository は取引履歴の永続化インターフェース。
type TradeRepository interface {
	// Create は取引記録を作成する。
	Create(ctx context.Context, record *model.TradeRecord) error

	// Complete は取引を完了状態にして完了時刻を記録する。
	Complete(ctx context.Context, id string, completedAt time.Time) error
}

// WithdrawalSessionRepository は引き出しセッションの永続化インターフェース。
// アカウントごとに単一行であり、再発行時はUPSERTで上書きされる。
type WithdrawalSessionRepository interface {
	// FindByAccountID はアカウントのセッションを取得する。見つからない場合はnilを返す。
	// 期限切れ判定は呼び出し元が行う。
	FindByAccountID(ctx context.Context, accountID int64) (*model.WithdrawalSession, error)

	// Upsert はセッションをアカウントIDをキーに原子的に作成または上書きする。
	Upsert(ctx context.Context, session *model.WithdrawalSession) error

	// DeleteByAccountID はアカウントのセッションを削除する。
	DeleteByAccountID(ctx context.Context, accountID int64) error

	// CountActive は期限内のセッション数を返す。
	CountActive(ctx context.Context, now time.Time) (int, error)
}
