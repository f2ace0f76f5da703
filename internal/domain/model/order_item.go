package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。商品名/価格は注文時点のスナップショットで、後から変えない
type OrderItem struct {
	ID           int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      int64           `gorm:"not null;index" json:"order_id"`
	ProductID    int64           `gorm:"not null;index" json:"product_id"`
	ProductName  string          `gorm:"type:varchar(255);not null" json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"product_price"`
	Quantity     int64           `gorm:"not null" json:"quantity"`
	Color        string          `gorm:"type:varchar(50)" json:"color,omitempty"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	CreatedAt    time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
}
