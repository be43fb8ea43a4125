// Package custody は預かりアイテムの入出庫を管理する。
//
// 預け入れはハンドル名の解決を経てインベントリと監査用の取引記録に
// 反映される。引き出しは2段階で行われる: まずセッションを作成し、
// ゲーム側アクターが署名付きペイロードで確定させる。セッションは
// アカウントごとに1件のみで、TTLを過ぎたものは遅延削除される。
package custody

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/stashlink/internal/model"
	"github.com/hitoshi/stashlink/internal/repository"
)

// AccountResolver はハンドル名からアカウントを解決するインターフェース。
// identity.Serviceが実装する。
type AccountResolver interface {
	ResolveByHandle(ctx context.Context, handle string) (*model.Account, error)
}

// TradeRecorder は取引メトリクスを記録するインターフェース。
type TradeRecorder interface {
	RecordTrade(tradeType string)
}

// Item は入出庫リクエストで指定されるアイテム。
type Item struct {
	Name     string `json:"name"`
	Game     string `json:"game"`
	Quantity int    `json:"quantity"`
	AssetID  string `json:"assetId"`
	Holder   string `json:"holder"`
}

// Service は預かりアイテムの入出庫ロジックを実装する。
type Service struct {
	resolver   AccountResolver
	inventory  repository.InventoryRepository
	trades     repository.TradeRepository
	sessions   repository.WithdrawalSessionRepository
	accounts   repository.AccountRepository
	challenges repository.ChallengeRepository
	recorder   TradeRecorder
	logger     *slog.Logger

	// sessionTTL は引き出しセッションの有効期間。
	sessionTTL time.Duration

	// テストで差し替えるための現在時刻フック
	now func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	resolver AccountResolver,
	inventory repository.InventoryRepository,
	trades repository.TradeRepository,
	sessions repository.WithdrawalSessionRepository,
	accounts repository.AccountRepository,
	challenges repository.ChallengeRepository,
	recorder TradeRecorder,
	logger *slog.Logger,
	sessionTTL time.Duration,
) *Service {
	return &Service{
		resolver:   resolver,
		inventory:  inventory,
		trades:     trades,
		sessions:   sessions,
		accounts:   accounts,
		challenges: challenges,
		recorder:   recorder,
		logger:     logger,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// Deposit はアイテムの預け入れを記録する。
// 預け入れ元のアカウントをハンドル名から解決し、インベントリ行と
// 完了済みの取引記録を作成する。
func (s *Service) Deposit(ctx context.Context, handle string, items []Item) (*model.TradeRecord, error) {
	if len(items) == 0 {
		return nil, model.NewItemsRequiredError()
	}

	account, err := s.resolver.ResolveByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("アイテム一覧の直列化に失敗しました: %w", err)
	}

	record := &model.TradeRecord{
		AccountID: account.ID,
		TradeType: model.TradeTypeDeposit,
		ItemsJSON: string(itemsJSON),
	}
	if err := s.trades.Create(ctx, record); err != nil {
		return nil, err
	}

	for _, item := range items {
		inv := &model.InventoryItem{
			AccountID: account.ID,
			ItemName:  item.Name,
			GameName:  item.Game,
			Quantity:  item.Quantity,
			AssetID:   item.AssetID,
			Holder:    item.Holder,
		}
		if err := s.inventory.Add(ctx, inv); err != nil {
			return nil, err
		}
	}

	if err := s.trades.Complete(ctx, record.ID, s.now()); err != nil {
		return nil, err
	}

	s.recorder.RecordTrade(string(model.TradeTypeDeposit))
	s.logger.Info("アイテムを預け入れました",
		slog.Int64("account_id", account.ID),
		slog.Int("item_count", len(items)),
	)
	return record, nil
}

// Inventory は指定ハンドルのアカウントの預かりアイテムを新しい順に返す。
func (s *Service) Inventory(ctx context.Context, handle string) ([]*model.InventoryItem, error) {
	account, err := s.resolver.ResolveByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	return s.inventory.ListByAccountID(ctx, account.ID)
}

// CreateWithdrawalSession は引き出しセッションを作成する。
// アカウントごとにアクティブなセッションは1件のみ。有効なセッションが
// 既に存在する場合はSESSION_EXISTSを返す。期限切れのセッションは
// 新しいセッションで置き換えられる。
func (s *Service) CreateWithdrawalSession(ctx context.Context, accountID int64, items []Item) (*model.WithdrawalSession, error) {
	if len(items) == 0 {
		return nil, model.NewItemsRequiredError()
	}

	existing, err := s.sessions.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if existing != nil && !existing.Expired(s.now()) {
		return nil, model.NewSessionExistsError()
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("アイテム一覧の直列化に失敗しました: %w", err)
	}

	now := s.now()
	session := &model.WithdrawalSession{
		AccountID: accountID,
		ItemsJSON: string(itemsJSON),
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.Upsert(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("引き出しセッションを作成しました",
		slog.Int64("account_id", accountID),
		slog.Time("expires_at", session.ExpiresAt),
	)
	return session, nil
}

// GetWithdrawalSession はアカウントのアクティブなセッションを返す。
// TTLを過ぎたセッションは行を削除した上でSESSION_NOT_FOUNDを返す（遅延削除）。
func (s *Service) GetWithdrawalSession(ctx context.Context, accountID int64) (*model.WithdrawalSession, error) {
	session, err := s.sessions.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, model.NewSessionNotFoundError()
	}
	if session.Expired(s.now()) {
		if err := s.sessions.DeleteByAccountID(ctx, accountID); err != nil {
			return nil, err
		}
		return nil, model.NewSessionNotFoundError()
	}
	return session, nil
}

// ConfirmWithdrawal は引き出しを確定する。
// アクティブなセッションを消費し、対象アイテムをインベントリから除去して
// 完了済みの取引記録を残す。
func (s *Service) ConfirmWithdrawal(ctx context.Context, accountID int64) (*model.TradeRecord, error) {
	session, err := s.GetWithdrawalSession(ctx, accountID)
	if err != nil {
		return nil, err
	}

	var items []Item
	if err := json.Unmarshal([]byte(session.ItemsJSON), &items); err != nil {
		return nil, fmt.Errorf("セッションのアイテム一覧の読み取りに失敗しました: %w", err)
	}

	record := &model.TradeRecord{
		AccountID: accountID,
		TradeType: model.TradeTypeWithdraw,
		ItemsJSON: session.ItemsJSON,
	}
	if err := s.trades.Create(ctx, record); err != nil {
		return nil, err
	}

	for _, item := range items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		if err := s.inventory.RemoveItems(ctx, accountID, item.Name, quantity); err != nil {
			return nil, err
		}
	}

	if err := s.sessions.DeleteByAccountID(ctx, accountID); err != nil {
		return nil, err
	}
	if err := s.trades.Complete(ctx, record.ID, s.now()); err != nil {
		return nil, err
	}

	s.recorder.RecordTrade(string(model.TradeTypeWithdraw))
	s.logger.Info("引き出しを確定しました",
		slog.Int64("account_id", accountID),
		slog.Int("item_count", len(items)),
	)
	return record, nil
}

// CheckVerified は指定アカウントに対する検証済み連携の有無を返す。
func (s *Service) CheckVerified(ctx context.Context, accountID int64) (bool, error) {
	return s.challenges.ExistsVerifiedForAccount(ctx, accountID)
}

// Stats はシステム全体の統計情報を返す。
func (s *Service) Stats(ctx context.Context) (*model.Stats, error) {
	totalAccounts, err := s.accounts.Count(ctx)
	if err != nil {
		return nil, err
	}
	verifiedLinks, err := s.challenges.CountVerified(ctx)
	if err != nil {
		return nil, err
	}
	totalItems, err := s.inventory.Count(ctx)
	if err != nil {
		return nil, err
	}
	activeSessions, err := s.sessions.CountActive(ctx, s.now())
	if err != nil {
		return nil, err
	}

	return &model.Stats{
		TotalAccounts:  totalAccounts,
		VerifiedLinks:  verifiedLinks,
		TotalItems:     totalItems,
		ActiveSessions: activeSessions,
	}, nil
}
