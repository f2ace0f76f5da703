package repository

import (
	"context"

	"shopbot/internal/domain/model"
)

// n8nから使う顧客
type CustomerRepository interface {
	//電話番号が既にあればErrDuplicate
	Create(ctx context.Context, c model.Customer) (model.Customer, error)
	FindByID(ctx context.Context, id int64) (model.Customer, error)
	FindByPhone(ctx context.Context, phone string) (model.Customer, error)
}

type MessageLogRepository interface {
	Create(ctx context.Context, m model.MessageLog) (model.MessageLog, error)

	//新しい順にlimit件。Customerをpreloadする
	ListRecent(ctx context.Context, limit int) ([]model.MessageLog, error)

	//古い順
	ListByCustomerID(ctx context.Context, customerID int64) ([]model.MessageLog, error)
}
