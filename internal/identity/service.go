// Package identity はゲーム側アカウントとチャット側ユーザーの
// 紐付け検証機能を提供する。
//
// アカウントのメタデータ（ハンドル名、プロフィール文、サムネイル）は
// 外部ディレクトリAPIが正であり、ローカルのPostgresはキャッシュとして
// 機能する（キャッシュアサイド方式）。所有検証だけは例外で、
// プロフィール文を必ずディレクトリAPIから取り直して判定する。
// キャッシュ済みの古いプロフィール文で検証が成立してはならない。
package identity

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/stashlink/internal/model"
	"github.com/hitoshi/stashlink/internal/repository"
	"github.com/hitoshi/stashlink/internal/roblox"
	"github.com/hitoshi/stashlink/internal/security"
)

// DirectoryClient はアカウントディレクトリAPIへの問い合わせインターフェース。
type DirectoryClient interface {
	// LookupByHandle はハンドル名でアカウントを検索する。見つからない場合はnilを返す。
	LookupByHandle(ctx context.Context, handle string) (*roblox.DirectoryUser, error)

	// GetUserByID はIDでアカウントの詳細情報を取得する。見つからない場合はnilを返す。
	GetUserByID(ctx context.Context, id int64) (*roblox.Profile, error)
}

// ThumbnailFetcher はサムネイル生成APIへの問い合わせインターフェース。
type ThumbnailFetcher interface {
	// RequestThumbnail はアバターサムネイルを要求する。失敗時はnilを返す。
	RequestThumbnail(ctx context.Context, accountID int64, size string) (*roblox.Thumbnail, error)
}

// Recorder は検証フローの観測値を記録するインターフェース。
type Recorder interface {
	// RecordDirectoryLookup はディレクトリ検索のキャッシュヒット有無を記録する。
	RecordDirectoryLookup(hit bool)

	// RecordVerification は検証試行の結果を記録する。
	RecordVerification(outcome string)
}

// Service はアカウント紐付け検証のビジネスロジックを実装する。
type Service struct {
	accounts   repository.AccountRepository
	challenges repository.ChallengeRepository
	directory  DirectoryClient
	thumbnails ThumbnailFetcher
	sanitizer  security.BioSanitizerService
	recorder   Recorder
	logger     *slog.Logger

	// retryDelay はサムネイル生成待ちの再試行間隔。
	retryDelay time.Duration

	// テストで差し替えるためのフック
	generateCode func() (string, error)
	sleep        func(ctx context.Context, d time.Duration)
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	accounts repository.AccountRepository,
	challenges repository.ChallengeRepository,
	directory DirectoryClient,
	thumbnails ThumbnailFetcher,
	sanitizer security.BioSanitizerService,
	recorder Recorder,
	logger *slog.Logger,
	retryDelay time.Duration,
) *Service {
	return &Service{
		accounts:     accounts,
		challenges:   challenges,
		directory:    directory,
		thumbnails:   thumbnails,
		sanitizer:    sanitizer,
		recorder:     recorder,
		logger:       logger,
		retryDelay:   retryDelay,
		generateCode: GenerateCodePhrase,
		sleep:        sleepContext,
	}
}

// ResolveByHandle はハンドル名からアカウントを解決する。
// キャッシュにあればそれを返し、なければディレクトリAPIへ問い合わせて
// 結果をキャッシュに保存する。見つからない場合はACCOUNT_NOT_FOUNDを返す。
func (s *Service) ResolveByHandle(ctx context.Context, handle string) (*model.Account, error) {
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}

	cached, err := s.accounts.FindByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		s.recorder.RecordDirectoryLookup(true)
		return cached, nil
	}
	s.recorder.RecordDirectoryLookup(false)

	user, err := s.directory.LookupByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, model.NewAccountNotFoundError(handle)
	}

	account := &model.Account{
		ID:     user.ID,
		Handle: user.Handle,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("アカウントをキャッシュに保存しました",
		slog.Int64("account_id", account.ID),
		slog.String("handle", account.Handle),
	)
	return account, nil
}

// ResolveByID はIDからアカウントを解決する。
// キャッシュにあればそれを返し、なければディレクトリAPIへ問い合わせて
// プロフィール文も含めてキャッシュに保存する。
func (s *Service) ResolveByID(ctx context.Context, id int64) (*model.Account, error) {
	cached, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cached != nil {
		s.recorder.RecordDirectoryLookup(true)
		return cached, nil
	}
	s.recorder.RecordDirectoryLookup(false)

	profile, err := s.directory.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, model.NewAccountNotFoundError(strconv.FormatInt(id, 10))
	}

	account := &model.Account{
		ID:     profile.ID,
		Handle: profile.Handle,
		Bio:    s.sanitizer.Sanitize(profile.Bio),
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}

	return account, nil
}

// IssueChallenge は検証チャレンジを発行する。
// 対象アカウントをハンドル名から解決し、新しい認証コードを生成して
// リクエスターIDをキーに保存する。未検証のチャレンジが既に存在する場合は
// 新しいコードで上書きされる。検証済みの場合はALREADY_VERIFIEDを返す。
func (s *Service) IssueChallenge(ctx context.Context, requesterID, handle string) (*model.Challenge, *model.Account, error) {
	account, err := s.ResolveByHandle(ctx, handle)
	if err != nil {
		return nil, nil, err
	}

	existing, err := s.challenges.FindByRequesterID(ctx, requesterID)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil && existing.Verified {
		return nil, nil, model.NewAlreadyVerifiedError()
	}

	code, err := s.generateCode()
	if err != nil {
		return nil, nil, err
	}

	challenge := &model.Challenge{
		RequesterID: requesterID,
		AccountID:   account.ID,
		CodePhrase:  code,
	}
	if err := s.challenges.Upsert(ctx, challenge); err != nil {
		return nil, nil, err
	}

	s.logger.Info("検証チャレンジを発行しました",
		slog.String("requester_id", requesterID),
		slog.Int64("account_id", account.ID),
	)
	return challenge, account, nil
}

// ConfirmChallenge は検証チャレンジの成立を判定する。
// プロフィール文は必ずディレクトリAPIから取り直す。キャッシュ済みの
// プロフィール文での判定は許されない。コードがプロフィール文に
// 部分一致すれば検証成立となり、アカウントの最新情報がキャッシュされる。
// 成立済みチャレンジの再確認は冪等で、副作用なく連携済みアカウントを返す。
func (s *Service) ConfirmChallenge(ctx context.Context, requesterID string) (*model.Account, error) {
	challenge, err := s.challenges.FindByRequesterID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, model.NewVerificationNotFoundError()
	}
	if challenge.Verified {
		s.recorder.RecordVerification("already_verified")
		return s.ResolveByID(ctx, challenge.AccountID)
	}

	profile, err := s.directory.GetUserByID(ctx, challenge.AccountID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		s.recorder.RecordVerification("account_unavailable")
		return nil, model.NewAccountNotFoundError(strconv.FormatInt(challenge.AccountID, 10))
	}

	bio := s.sanitizer.Sanitize(profile.Bio)
	if !strings.Contains(bio, challenge.CodePhrase) {
		s.recorder.RecordVerification("code_mismatch")
		return nil, model.NewCodeMismatchError()
	}

	if err := s.challenges.MarkVerified(ctx, requesterID, time.Now()); err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:     profile.ID,
		Handle: profile.Handle,
		Bio:    bio,
	}
	if err := s.accounts.Upsert(ctx, account); err != nil {
		return nil, err
	}

	s.recorder.RecordVerification("verified")
	s.logger.Info("アカウント連携の検証が成立しました",
		slog.String("requester_id", requesterID),
		slog.Int64("account_id", profile.ID),
	)
	return account, nil
}

// FetchAvatar はアバターサムネイルのURLを取得する。
// キャッシュ済みURLがあればそれを返す。アカウント行が未キャッシュの場合は
// 先にディレクトリAPIから解決する（行がないと完了URLの保存先がない）。
// 生成APIは非同期であるため、Processing応答に対しては再試行間隔だけ
// 待機して1回だけ再試行する。それでも完了しない場合は
// THUMBNAIL_UNAVAILABLEを返す。
// 完了したURLのみキャッシュされ、失敗がキャッシュされることはない。
func (s *Service) FetchAvatar(ctx context.Context, accountID int64, size string) (string, error) {
	cached, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		return "", err
	}
	if cached != nil && cached.ThumbnailURL != "" {
		return cached.ThumbnailURL, nil
	}
	if cached == nil {
		if _, err := s.ResolveByID(ctx, accountID); err != nil {
			return "", err
		}
	}

	thumb, err := s.thumbnails.RequestThumbnail(ctx, accountID, size)
	if err != nil {
		return "", err
	}

	if thumb != nil && thumb.State == model.ThumbnailStateProcessing {
		s.sleep(ctx, s.retryDelay)
		thumb, err = s.thumbnails.RequestThumbnail(ctx, accountID, size)
		if err != nil {
			return "", err
		}
	}

	if thumb == nil || thumb.State != model.ThumbnailStateCompleted {
		return "", model.NewThumbnailUnavailableError(accountID)
	}

	if err := s.accounts.UpdateThumbnailURL(ctx, accountID, thumb.URL); err != nil {
		return "", err
	}
	return thumb.URL, nil
}

// sleepContext はコンテキストのキャンセルを尊重して待機する。
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
