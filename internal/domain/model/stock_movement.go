package model

import "time"

type StockMovementReason string

const (
	//注文作成時の減算
	StockReasonCheckout StockMovementReason = "checkout"
	//決済失敗時の戻し
	StockReasonPaymentFailed StockMovementReason = "payment_failed"
)

// 在庫増減の履歴。(order_id, product_id, reason)は一意なので同じ戻しは2回入らない
type StockMovement struct {
	ID        int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64               `gorm:"not null;index;uniqueIndex:uq_stock_movement_once,priority:2" json:"product_id"`
	OrderID   int64               `gorm:"not null;index;uniqueIndex:uq_stock_movement_once,priority:1" json:"order_id"`
	Delta     int64               `gorm:"not null" json:"delta"`
	Reason    StockMovementReason `gorm:"type:varchar(50);not null;uniqueIndex:uq_stock_movement_once,priority:3" json:"reason"`
	CreatedAt time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
}

// 注文番号の日ごとの連番
type OrderSequence struct {
	Day     string `gorm:"type:char(8);primaryKey"`
	LastSeq int64  `gorm:"not null"`
}
