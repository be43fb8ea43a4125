package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/stashlink/internal/model"
)

// PostgresAccountRepo はPostgreSQLを使用したアカウントリポジトリ。
type PostgresAccountRepo struct {
	db *sql.DB
}

// NewPostgresAccountRepo はPostgresAccountRepoを生成する。
func NewPostgresAccountRepo(db *sql.DB) *PostgresAccountRepo {
	return &PostgresAccountRepo{db: db}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, handle, bio, thumbnail_url, created_at, updated_at
		 FROM accounts WHERE id = $1`,
		id,
	).Scan(&account.ID, &account.Handle, &account.Bio, &account.ThumbnailURL,
		&account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アカウントの取得に失敗しました: %w", err)
	}

	return account, nil
}

// FindByHandle はハンドル名でアカウントを検索する。
// 大文字小文字を区別しない。見つからない場合はnilを返す。
func (r *PostgresAccountRepo) FindByHandle(ctx context.Context, handle string) (*model.Account, error) {
	account := &model.Account{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, handle, bio, thumbnail_url, created_at, updated_at
		 FROM accounts WHERE LOWER(handle) = LOWER($1)`,
		handle,
	).Scan(&account.ID, &account.Handle, &account.Bio, &account.ThumbnailURL,
		&account.CreatedAt, &account.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ハンドル名でのアカウント検索に失敗しました: %w", err)
	}

	return account, nil
}

// Upsert はアカウントを単一のINSERT ON CONFLICTで原子的に作成または更新する。
// 既存行のbio・thumbnail_urlは、新しい値が空の場合は既存値を維持する
// （ディレクトリ検索はbioを返さないことがあるため）。
func (r *PostgresAccountRepo) Upsert(ctx context.Context, account *model.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, handle, bio, thumbnail_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, now(), now())
		 ON CONFLICT (id) DO UPDATE SET
		     handle = EXCLUDED.handle,
		     bio = CASE WHEN EXCLUDED.bio = '' THEN accounts.bio ELSE EXCLUDED.bio END,
		     thumbnail_url = CASE WHEN EXCLUDED.thumbnail_url = '' THEN accounts.thumbnail_url ELSE EXCLUDED.thumbnail_url END,
		     updated_at = now()`,
		account.ID, account.Handle, account.Bio, account.ThumbnailURL,
	)
	if err != nil {
		return fmt.Errorf("アカウントのUPSERTに失敗しました: %w", err)
	}

	return nil
}

// UpdateBio はキャッシュ済みプロフィール文を更新する。
func (r *PostgresAccountRepo) UpdateBio(ctx context.Context, id int64, bio string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET bio = $2, updated_at = now() WHERE id = $1`,
		id, bio,
	)
	if err != nil {
		return fmt.Errorf("プロフィール文の更新に失敗しました: %w", err)
	}
	return nil
}

// UpdateThumbnailURL はキャッシュ済みサムネイルURLを更新する。
func (r *PostgresAccountRepo) UpdateThumbnailURL(ctx context.Context, id int64, url string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET thumbnail_url = $2, updated_at = now() WHERE id = $1`,
		id, url,
	)
	if err != nil {
		return fmt.Errorf("サムネイルURLの更新に失敗しました: %w", err)
	}
	return nil
}

// Count は全アカウント数を返す。
func (r *PostgresAccountRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("アカウント数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ AccountRepository = (*PostgresAccountRepo)(nil)
