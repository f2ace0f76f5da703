package model

import "time"

// WhatsAppの顧客。n8nから電話番号で登録/検索される
type Customer struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	PhoneNumber  string    `gorm:"type:varchar(20);not null;uniqueIndex" json:"phone_number"`
	ServicesMode *int      `json:"services_mode"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 1往復分の会話ログ（顧客メッセージ + AI返信）
type MessageLog struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID       int64     `gorm:"not null;index" json:"customer_id"`
	Customer         *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CustomerMessages string    `gorm:"type:text;not null" json:"customer_messages"`
	AIMessages       string    `gorm:"column:ai_messages;type:text;not null" json:"ai_messages"`
	CreatedAt        time.Time `gorm:"not null;index;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
