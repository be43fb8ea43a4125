// Package model はドメインモデルを定義する。
package model

import "time"

// InventoryItem は預かり中のゲームアイテムを表す。
type InventoryItem struct {
	ID        string
	AccountID int64
	ItemName  string
	GameName  string
	Quantity  int
	AssetID   string
	Holder    string
	CreatedAt time.Time
}

// TradeType は取引の種別を表す。
type TradeType string

const (
	// TradeTypeDeposit は預け入れ取引。
	TradeTypeDeposit TradeType = "deposit"
	// TradeTypeWithdraw は引き出し取引。
	TradeTypeWithdraw TradeType = "withdraw"
)

// TradeStatus は取引の状態を表す。
type TradeStatus string

const (
	// TradeStatusPending は処理中の取引状態。
	TradeStatusPending TradeStatus = "pending"
	// TradeStatusCompleted は完了した取引状態。
	TradeStatusCompleted TradeStatus = "completed"
)

// TradeRecord は預け入れ・引き出しの監査記録を表す。
type TradeRecord struct {
	ID          string
	AccountID   int64
	TradeType   TradeType
	ItemsJSON   string
	Status      TradeStatus
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// WithdrawalSession は引き出しセッションを表す。
// アカウントごとに最大1件のみアクティブであり、Challengeと同じ
// 「キーごとに単一行・再発行で上書き」のパターンで管理される。
// ExpiresAtを過ぎたセッションは存在しないものとして扱われる。
type WithdrawalSession struct {
	AccountID int64
	ItemsJSON string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired はセッションが有効期限切れかを返す。
func (s *WithdrawalSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Stats はシステム全体の統計情報を表す。
type Stats struct {
	TotalAccounts  int
	VerifiedLinks  int
	TotalItems     int
	ActiveSessions int
}
