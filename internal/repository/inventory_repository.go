package repository

import (
	"context"

	"shopbot/internal/domain/model"
)

type InventoryRepository interface {
	// 在庫が足りるときだけ減算
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（決済失敗など）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 増減履歴。(order_id, product_id, reason)が既にあれば何もせずfalse
	CreateMovement(ctx context.Context, m model.StockMovement) (bool, error)
}
