package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/stashlink/internal/model"
)

// PostgresWithdrawalSessionRepo はPostgreSQLを使用した引き出しセッションリポジトリ。
type PostgresWithdrawalSessionRepo struct {
	db *sql.DB
}

// NewPostgresWithdrawalSessionRepo はPostgresWithdrawalSessionRepoを生成する。
func NewPostgresWithdrawalSessionRepo(db *sql.DB) *PostgresWithdrawalSessionRepo {
	return &PostgresWithdrawalSessionRepo{db: db}
}

// FindByAccountID はアカウントのセッションを取得する。見つからない場合はnilを返す。
// 期限切れ判定は呼び出し元が行う。
func (r *PostgresWithdrawalSessionRepo) FindByAccountID(ctx context.Context, accountID int64) (*model.WithdrawalSession, error) {
	session := &model.WithdrawalSession{}
	err := r.db.QueryRowContext(ctx,
		`SELECT account_id, items_json, created_at, expires_at
		 FROM withdrawal_sessions WHERE account_id = $1`,
		accountID,
	).Scan(&session.AccountID, &session.ItemsJSON, &session.CreatedAt, &session.ExpiresAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("セッションの取得に失敗しました: %w", err)
	}

	return session, nil
}

// Upsert はセッションをアカウントIDをキーに原子的に作成または上書きする。
func (r *PostgresWithdrawalSessionRepo) Upsert(ctx context.Context, session *model.WithdrawalSession) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO withdrawal_sessions (account_id, items_json, created_at, expires_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (account_id) DO UPDATE SET
		     items_json = EXCLUDED.items_json,
		     created_at = EXCLUDED.created_at,
		     expires_at = EXCLUDED.expires_at`,
		session.AccountID, session.ItemsJSON, session.CreatedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("セッションのUPSERTに失敗しました: %w", err)
	}

	return nil
}

// DeleteByAccountID はアカウントのセッションを削除する。
func (r *PostgresWithdrawalSessionRepo) DeleteByAccountID(ctx context.Context, accountID int64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM withdrawal_sessions WHERE account_id = $1`,
		accountID,
	)
	if err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}
	return nil
}

// CountActive は期限内のセッション数を返す。
func (r *PostgresWithdrawalSessionRepo) CountActive(ctx context.Context, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM withdrawal_sessions WHERE expires_at > $1`,
		now,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("アクティブセッション数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ WithdrawalSessionRepository = (*PostgresWithdrawalSessionRepo)(nil)
