package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/stashlink/internal/model"
)

// PostgresChallengeRepo はPostgreSQLを使用した検証チャレンジリポジトリ。
type PostgresChallengeRepo struct {
	db *sql.DB
}

// NewPostgresChallengeRepo はPostgresChallengeRepoを生成する。
func NewPostgresChallengeRepo(db *sql.DB) *PostgresChallengeRepo {
	return &PostgresChallengeRepo{db: db}
}

// FindByRequesterID はリクエスターIDでチャレンジを取得する。見つからない場合はnilを返す。
func (r *PostgresChallengeRepo) FindByRequesterID(ctx context.Context, requesterID string) (*model.Challenge, error) {
	challenge := &model.Challenge{}
	var verifiedAt sql.NullTime

	err := r.db.QueryRowContext(ctx,
		`SELECT requester_id, account_id, code_phrase, verified, created_at, verified_at
		 FROM verifications WHERE requester_id = $1`,
		requesterID,
	).Scan(&challenge.RequesterID, &challenge.AccountID, &challenge.CodePhrase,
		&challenge.Verified, &challenge.CreatedAt, &verifiedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("チャレンジの取得に失敗しました: %w", err)
	}

	if verifiedAt.Valid {
		challenge.VerifiedAt = &verifiedAt.Time
	}

	return challenge, nil
}

// Upsert はチャレンジをリクエスターIDをキーに原子的に作成または上書きする。
// WHERE verifications.verified = FALSE により、検証済みの既存行は
// SQLレベルで上書きから保護される（終端状態の不変条件）。
func (r *PostgresChallengeRepo) Upsert(ctx context.Context, challenge *model.Challenge) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verifications (requester_id, account_id, code_phrase, verified, created_at, verified_at)
		 VALUES ($1, $2, $3, FALSE, now(), NULL)
		 ON CONFLICT (requester_id) DO UPDATE SET
		     account_id = EXCLUDED.account_id,
		     code_phrase = EXCLUDED.code_phrase,
		     verified = FALSE,
		     created_at = now(),
		     verified_at = NULL
		 WHERE verifications.verified = FALSE`,
		challenge.RequesterID, challenge.AccountID, challenge.CodePhrase,
	)
	if err != nil {
		return fmt.Errorf("チャレンジのUPSERTに失敗しました: %w", err)
	}

	return nil
}

// MarkVerified はチャレンジを検証済みにして検証時刻を記録する。
func (r *PostgresChallengeRepo) MarkVerified(ctx context.Context, requesterID string, verifiedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE verifications SET verified = TRUE, verified_at = $2
		 WHERE requester_id = $1 AND verified = FALSE`,
		requesterID, verifiedAt,
	)
	if err != nil {
		return fmt.Errorf("チャレンジの検証済み更新に失敗しました: %w", err)
	}
	return nil
}

// ExistsVerifiedForAccount は指定アカウントに対する検証済みチャレンジの有無を返す。
func (r *PostgresChallengeRepo) ExistsVerifiedForAccount(ctx context.Context, accountID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM verifications WHERE account_id = $1 AND verified)`,
		accountID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("検証済みチャレンジの確認に失敗しました: %w", err)
	}
	return exists, nil
}

// CountVerified は検証済みチャレンジ数を返す。
func (r *PostgresChallengeRepo) CountVerified(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM verifications WHERE verified`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("検証済みチャレンジ数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ ChallengeRepository = (*PostgresChallengeRepo)(nil)
