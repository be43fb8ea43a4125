package custody

import (
	"context"
	"time"

	"github.com/hitoshi/stashlink/internal/model"
	"github.com/hitoshi/stashlink/internal/repository"
)

// mockResolver はAccountResolverのモック実装。
type mockResolver struct {
	account *model.Account
	err     error
	calls   int
}

func (m *mockResolver) ResolveByHandle(ctx context.Context, handle string) (*model.Account, error) {
	m.calls++
	return m.account, m.err
}

// compile-time interface check
var _ AccountResolver = (*mockResolver)(nil)

// mockTradeRecorder はTradeRecorderのモック実装。
type mockTradeRecorder struct {
	trades []string
}

func (m *mockTradeRecorder) RecordTrade(tradeType string) {
	m.trades = append(m.trades, tradeType)
}

// compile-time interface check
var _ TradeRecorder = (*mockTradeRecorder)(nil)

// removedCall はRemoveItemsの呼び出し記録。
type removedCall struct {
	accountID int64
	itemName  string
	quantity  int
}

// mockInventoryRepo はInventoryRepositoryのモック実装。
type mockInventoryRepo struct {
	items           []*model.InventoryItem
	count           int
	added           []*model.InventoryItem
	removed         []removedCall
	listedAccountID int64
}

func (m *mockInventoryRepo) Add(ctx context.Context, item *model.InventoryItem) error {
	m.added = append(m.added, item)
	return nil
}

func (m *mockInventoryRepo) ListByAccountID(ctx context.Context, accountID int64) ([]*model.InventoryItem, error) {
	m.listedAccountID = accountID
	return m.items, nil
}

func (m *mockInventoryRepo) RemoveItems(ctx context.Context, accountID int64, itemName string, quantity int) error {
	m.removed = append(m.removed, removedCall{accountID: accountID, itemName: itemName, quantity: quantity})
	return nil
}

func (m *mockInventoryRepo) Count(ctx context.Context) (int, error) {
	return m.count, nil
}

// compile-time interface check
var _ repository.InventoryRepository = (*mockInventoryRepo)(nil)

// mockTradeRepo はTradeRepositoryのモック実装。
type mockTradeRepo struct {
	created   []*model.TradeRecord
	completed []string
}

func (m *mockTradeRepo) Create(ctx context.Context, record *model.TradeRecord) error {
	if record.ID == "" {
		record.ID = "trade-1"
	}
	if record.Status == "" {
		record.Status = model.TradeStatusPending
	}
	m.created = append(m.created, record)
	return nil
}

func (m *mockTradeRepo) Complete(ctx context.Context, id string, completedAt time.Time) error {
	m.completed = append(m.completed, id)
	return nil
}

// compile-time interface check
var _ repository.TradeRepository = (*mockTradeRepo)(nil)

// mockSessionRepo はWithdrawalSessionRepositoryのモック実装。
type mockSessionRepo struct {
	session          *model.WithdrawalSession
	activeCount      int
	upserted         *model.WithdrawalSession
	deletedAccountID int64
}

func (m *mockSessionRepo) FindByAccountID(ctx context.Context, accountID int64) (*model.WithdrawalSession, error) {
	return m.session, nil
}

func (m *mockSessionRepo) Upsert(ctx context.Context, session *model.WithdrawalSession) error {
	m.upserted = session
	return nil
}

func (m *mockSessionRepo) DeleteByAccountID(ctx context.Context, accountID int64) error {
	m.deletedAccountID = accountID
	return nil
}

func (m *mockSessionRepo) CountActive(ctx context.Context, now time.Time) (int, error) {
	return m.activeCount, nil
}

// compile-time interface check
var _ repository.WithdrawalSessionRepository = (*mockSessionRepo)(nil)

// mockAccountRepo はAccountRepositoryのモック実装。
type mockAccountRepo struct {
	count int
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) FindByHandle(ctx context.Context, handle string) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) Upsert(ctx context.Context, account *model.Account) error {
	return nil
}

func (m *mockAccountRepo) UpdateBio(ctx context.Context, id int64, bio string) error {
	return nil
}

func (m *mockAccountRepo) UpdateThumbnailURL(ctx context.Context, id int64, url string) error {
	return nil
}

func (m *mockAccountRepo) Count(ctx context.Context) (int, error) {
	return m.count, nil
}

// compile-time interface check
var _ repository.AccountRepository = (*mockAccountRepo)(nil)

// mockChallengeRepo はChallengeRepositoryのモック実装。
type mockChallengeRepo struct {
	verifiedForAccount bool
	verifiedCount      int
}

func (m *mockChallengeRepo) FindByRequesterID(ctx context.Context, requesterID string) (*model.Challenge, error) {
	return nil, nil
}

func (m *mockChallengeRepo) Upsert(ctx context.Context, challenge *model.Challenge) error {
	return nil
}

func (m *mockChallengeRepo) MarkVerified(ctx context.Context, requesterID string, verifiedAt time.Time) error {
	return nil
}

func (m *mockChallengeRepo) ExistsVerifiedForAccount(ctx context.Context, accountID int64) (bool, error) {
	return m.verifiedForAccount, nil
}

func (m *mockChallengeRepo) CountVerified(ctx context.Context) (int, error) {
	return m.verifiedCount, nil
}

// compile-time interface check
var _ repository.ChallengeRepository = (*mockChallengeRepo)(nil)
