package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/hitoshi/stashlink/internal/model"
)

// PostgresInventoryRepo はPostgreSQLを使用した預かりアイテムリポジトリ。
type PostgresInventoryRepo struct {
	db *sql.DB
}

// NewPostgresInventoryRepo はPostgresInventoryRepoを生成する。
func NewPostgresInventoryRepo(db *sql.DB) *PostgresInventoryRepo {
	return &PostgresInventoryRepo{db: db}
}

// Add はアイテムを追加する。IDが未設定の場合は新規UUIDを採番する。
func (r *PostgresInventoryRepo) Add(ctx context.Context, item *model.InventoryItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO inventory (id, account_id, item_name, game_name, quantity, asset_id, holder, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
		item.ID, item.AccountID, item.ItemName, item.GameName,
		item.Quantity, item.AssetID, item.Holder,
	)
	if err != nil {
		return fmt.Errorf("アイテムの追加に失敗しました: %w", err)
	}

	return nil
}

// ListByAccountID はアカウントの預かりアイテムを新しい順に返す。
func (r *PostgresInventoryRepo) ListByAccountID(ctx context.Context, accountID int64) ([]*model.InventoryItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, account_id, item_name, game_name, quantity, asset_id, holder, created_at
		 FROM inventory WHERE account_id = $1 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("アイテム一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var items []*model.InventoryItem
	for rows.Next() {
		item := &model.InventoryItem{}
		if err := rows.Scan(&item.ID, &item.AccountID, &item.ItemName, &item.GameName,
			&item.Quantity, &item.AssetID, &item.Holder, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("アイテム行の読み取りに失敗しました: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アイテム一覧の走査に失敗しました: %w", err)
	}

	return items, nil
}

// RemoveItems は指定アイテム名の行を古い順に最大quantity件削除する（引き出し用）。
func (r *PostgresInventoryRepo) RemoveItems(ctx context.Context, accountID int64, itemName string, quantity int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM inventory WHERE id IN (
		     SELECT id FROM inventory
		     WHERE account_id = $1 AND item_name = $2
		     ORDER BY created_at ASC
		     LIMIT $3
		 )`,
		accountID, itemName, quantity,
	)
	if err != nil {
		return fmt.Errorf("アイテムの削除に失敗しました: %w", err)
	}

	return nil
}

// Count は全アイテム数を返す。
func (r *PostgresInventoryRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inventory`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("アイテム数の取得に失敗しました: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ InventoryRepository = (*PostgresInventoryRepo)(nil)
