package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/stashlink/internal/model"
)

// PostgresTradeRepo はPostgreSQLを使用した取引履歴リポジトリ。
type PostgresTradeRepo struct {
	db *sql.DB
}

// NewPostgresTradeRepo はPostgresTradeRepoを生成する。
func NewPostgresTradeRepo(db *sql.DB) *PostgresTradeRepo {
	return &PostgresTradeRepo{db: db}
}

// Create は取引記録を作成する。IDが未設定の場合は新規UUIDを採番する。
func (r *PostgresTradeRepo) Create(ctx context.Context, record *model.TradeRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.Status == "" {
		record.Status = model.TradeStatusPending
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO trade_history (id, account_id, trade_type, items_json, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		record.ID, record.AccountID, string(record.TradeType), record.ItemsJSON, string(record.Status),
	)
	if err != nil {
		return fmt.Errorf("取引記録の作成に失敗しました: %w", err)
	}

	return nil
}

// Complete は取引を完了状態にして完了時刻を記録する。
func (r *PostgresTradeRepo) Complete(ctx context.Context, id string, completedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE trade_history SET status = 'completed', completed_at = $2 WHERE id = $1`,
		id, completedAt,
	)
	if err != nil {
		return fmt.Errorf("取引の完了更新に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ TradeRepository = (*PostgresTradeRepo)(nil)
