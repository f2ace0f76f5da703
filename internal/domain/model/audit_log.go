package model

import "time"

type AuditAction string

const (
	AuditActionPaymentPaid   AuditAction = "PAYMENT_PAID"
	AuditActionPaymentFailed AuditAction = "PAYMENT_FAILED"
)

type AuditResourceType string

const (
	AuditResourceOrder AuditResourceType = "order"
)

// 決済状態の変更ログ。
// 「どこから(callback/redirect)」「どの注文を」「どう変えたか」を残す。
type AuditLog struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//callback / redirect
	Actor string `gorm:"type:varchar(50);not null;index" json:"actor"`

	Action AuditAction `gorm:"type:varchar(50);not null;index" json:"action"`

	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index" json:"resource_type"`

	ResourceID int64 `gorm:"not null;index" json:"resource_id"`

	//JSON文字列で保存する。
	BeforeJSON string `gorm:"type:text" json:"before_json"`

	AfterJSON string `gorm:"type:text" json:"after_json"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}
