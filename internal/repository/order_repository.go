package repository

import (
	"context"
	"time"

	"shopbot/internal/domain/model"
)

// 決済ステータスの compare-and-swap。From のときだけ To に変わる
type PaymentTransition struct {
	OrderID      int64
	From         model.PaymentStatus
	To           model.PaymentStatus
	Status       model.OrderStatus
	PaidAt       *time.Time
	ReconciledAt time.Time
	Metadata     model.PaymentMetadata
}

type BillAttachment struct {
	BillID       string
	CollectionID string
	Metadata     model.PaymentMetadata
}

type OrderRepository interface {
	// dayはYYYYMMDD。その日の連番を1つ進めて返す（初回は1）
	NextSequence(ctx context.Context, day string) (int64, error)

	Create(ctx context.Context, order model.Order) (model.Order, error)
	AttachBill(ctx context.Context, orderID int64, bill BillAttachment) error

	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByNumber(ctx context.Context, orderNumber string) (model.Order, error)

	//注文番号が一致すればそれ、なければbill idで探す。行ロック付き
	FindForReconcile(ctx context.Context, orderNumber string, billID string) (model.Order, error)

	// 成功したら true。既に別の状態なら false（エラーではない）
	TransitionPayment(ctx context.Context, t PaymentTransition) (bool, error)

	//追跡用。注文番号とメールの両方が一致したときだけ返す
	FindByNumberAndEmail(ctx context.Context, orderNumber string, email string) (model.Order, error)
}
