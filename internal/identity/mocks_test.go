package identity

import (
	"context"
	"time"

	"github.com/hitoshi/stashlink/internal/model"
	"github.com/hitoshi/stashlink/internal/repository"
	"github.com/hitoshi/stashlink/internal/roblox"
)

// mockAccountRepo はAccountRepositoryのモック実装。
type mockAccountRepo struct {
	findByIDFunc           func(ctx context.Context, id int64) (*model.Account, error)
	findByHandleFunc       func(ctx context.Context, handle string) (*model.Account, error)
	upsertFunc             func(ctx context.Context, account *model.Account) error
	updateBioFunc          func(ctx context.Context, id int64, bio string) error
	updateThumbnailURLFunc func(ctx context.Context, id int64, url string) error
	countFunc              func(ctx context.Context) (int, error)
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	if m.findByIDFunc == nil {
		return nil, nil
	}
	return m.findByIDFunc(ctx, id)
}

func (m *mockAccountRepo) FindByHandle(ctx context.Context, handle string) (*model.Account, error) {
	if m.findByHandleFunc == nil {
		return nil, nil
	}
	return m.findByHandleFunc(ctx, handle)
}

func (m *mockAccountRepo) Upsert(ctx context.Context, account *model.Account) error {
	if m.upsertFunc == nil {
		return nil
	}
	return m.upsertFunc(ctx, account)
}

func (m *mockAccountRepo) UpdateBio(ctx context.Context, id int64, bio string) error {
	if m.updateBioFunc == nil {
		return nil
	}
	return m.updateBioFunc(ctx, id, bio)
}

func (m *mockAccountRepo) UpdateThumbnailURL(ctx context.Context, id int64, url string) error {
	if m.updateThumbnailURLFunc == nil {
		return nil
	}
	return m.updateThumbnailURLFunc(ctx, id, url)
}

func (m *mockAccountRepo) Count(ctx context.Context) (int, error) {
	if m.countFunc == nil {
		return 0, nil
	}
	return m.countFunc(ctx)
}

// compile-time interface check
var _ repository.AccountRepository = (*mockAccountRepo)(nil)

// mockChallengeRepo はChallengeRepositoryのモック実装。
type mockChallengeRepo struct {
	findByRequesterIDFunc        func(ctx context.Context, requesterID string) (*model.Challenge, error)
	upsertFunc                   func(ctx context.Context, challenge *model.Challenge) error
	markVerifiedFunc             func(ctx context.Context, requesterID string, verifiedAt time.Time) error
	existsVerifiedForAccountFunc func(ctx context.Context, accountID int64) (bool, error)
	countVerifiedFunc            func(ctx context.Context) (int, error)
}

func (m *mockChallengeRepo) FindByRequesterID(ctx context.Context, requesterID string) (*model.Challenge, error) {
	if m.findByRequesterIDFunc == nil {
		return nil, nil
	}
	return m.findByRequesterIDFunc(ctx, requesterID)
}

func (m *mockChallengeRepo) Upsert(ctx context.Context, challenge *model.Challenge) error {
	if m.upsertFunc == nil {
		return nil
	}
	return m.upsertFunc(ctx, challenge)
}

func (m *mockChallengeRepo) MarkVerified(ctx context.Context, requesterID string, verifiedAt time.Time) error {
	if m.markVerifiedFunc == nil {
		return nil
	}
	return m.markVerifiedFunc(ctx, requesterID, verifiedAt)
}

func (m *mockChallengeRepo) ExistsVerifiedForAccount(ctx context.Context, accountID int64) (bool, error) {
	if m.existsVerifiedForAccountFunc == nil {
		return false, nil
	}
	return m.existsVerifiedForAccountFunc(ctx, accountID)
}

func (m *mockChallengeRepo) CountVerified(ctx context.Context) (int, error) {
	if m.countVerifiedFunc == nil {
		return 0, nil
	}
	return m.countVerifiedFunc(ctx)
}

// compile-time interface check
var _ repository.ChallengeRepository = (*mockChallengeRepo)(nil)

// mockDirectoryClient はDirectoryClientのモック実装。呼び出し回数を記録する。
type mockDirectoryClient struct {
	lookupByHandleFunc func(ctx context.Context, handle string) (*roblox.DirectoryUser, error)
	getUserByIDFunc    func(ctx context.Context, id int64) (*roblox.Profile, error)
	lookupCalls        int
	getByIDCalls       int
}

func (m *mockDirectoryClient) LookupByHandle(ctx context.Context, handle string) (*roblox.DirectoryUser, error) {
	m.lookupCalls++
	if m.lookupByHandleFunc == nil {
		return nil, nil
	}
	return m.lookupByHandleFunc(ctx, handle)
}

func (m *mockDirectoryClient) GetUserByID(ctx context.Context, id int64) (*roblox.Profile, error) {
	m.getByIDCalls++
	if m.getUserByIDFunc == nil {
		return nil, nil
	}
	return m.getUserByIDFunc(ctx, id)
}

// compile-time interface check
var _ DirectoryClient = (*mockDirectoryClient)(nil)

// mockThumbnailFetcher はThumbnailFetcherのモック実装。呼び出し回数を記録する。
type mockThumbnailFetcher struct {
	requestThumbnailFunc func(ctx context.Context, accountID int64, size string) (*roblox.Thumbnail, error)
	calls                int
}

func (m *mockThumbnailFetcher) RequestThumbnail(ctx context.Context, accountID int64, size string) (*roblox.Thumbnail, error) {
	m.calls++
	if m.requestThumbnailFunc == nil {
		return nil, nil
	}
	return m.requestThumbnailFunc(ctx, accountID, size)
}

// compile-time interface check
var _ ThumbnailFetcher = (*mockThumbnailFetcher)(nil)

// mockRecorder はRecorderのモック実装。記録された観測値を保持する。
type mockRecorder struct {
	lookupHits    int
	lookupMisses  int
	verifications []string
}

func (m *mockRecorder) RecordDirectoryLookup(hit bool) {
	if hit {
		m.lookupHits++
	} else {
		m.lookupMisses++
	}
}

func (m *mockRecorder) RecordVerification(outcome string) {
	m.verifications = append(m.verifications, outcome)
}

// compile-time interface check
var _ Recorder = (*mockRecorder)(nil)
