package usecase

import (
	"context"
	"time"

	"shopbot/internal/infra/billplz"
)

type IDGenerator interface {
	NewID() string
}

type Clock interface {
	Now() time.Time
}

// Billplzクライアントのうちusecaseが使う部分
type PaymentGateway interface {
	CreateBill(ctx context.Context, in billplz.CreateBillInput) (billplz.Bill, error)
	GetBill(ctx context.Context, billID string) (billplz.Bill, error)
	SignatureEnabled() bool
	VerifySignature(payload map[string]string, signature string) bool
}

// commit後に投げる。失敗しても注文処理は失敗にしない
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, key string, payload any) error
}

type TrackingTokenService interface {
	Issue(orderNumber string) (string, time.Time, error)
	Parse(token string) (string, error)
}

// AIの返信をn8n経由でWhatsAppに送る
type MessageForwarder interface {
	ForwardAIMessage(ctx context.Context, phoneNumber string, message string) error
}
