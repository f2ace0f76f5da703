package repository

import (
	"context"
	"errors"

	"shopbot/internal/domain/model"
	repo "shopbot/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderGormRepository struct {
	db *gorm.DB
}

func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

// 日ごとの連番。UPSERTなので同じ日の同時checkoutでも番号は被らない
func (r *OrderGormRepository) NextSequence(ctx context.Context, day string) (int64, error) {
	var seq int64
	err := r.db.WithContext(ctx).Raw(`
		INSERT INTO order_sequences (day, last_seq) VALUES (?, 1)
		ON CONFLICT (day) DO UPDATE SET last_seq = order_sequences.last_seq + 1
		RETURNING last_seq`, day).
		Scan(&seq).Error
	if err != nil {
		return 0, err
	}
	return seq, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (model.Order, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Order{}, repo.ErrDuplicate
		}
		return model.Order{}, err
	}
	return order, nil
}

func (r *OrderGormRepository) AttachBill(ctx context.Context, orderID int64, bill repo.BillAttachment) error {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"billplz_bill_id":       bill.BillID,
			"billplz_collection_id": bill.CollectionID,
			"payment_metadata":      bill.Metadata,
		})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", orderID))
}

func (r *OrderGormRepository) FindByNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).Where("order_number = ?", orderNumber))
}

// order_number優先、なければbill id
func (r *OrderGormRepository) FindForReconcile(ctx context.Context, orderNumber string, billID string) (model.Order, error) {
	locked := func() *gorm.DB {
		return r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
	}

	if orderNumber != "" {
		o, err := r.first(locked().Where("order_number = ?", orderNumber))
		if err == nil {
			return o, nil
		}
		if !errors.Is(err, repo.ErrNotFound) {
			return model.Order{}, err
		}
	}
	if billID != "" {
		return r.first(locked().Where("billplz_bill_id = ?", billID))
	}
	return model.Order{}, repo.ErrNotFound
}

// WHERE payment_status = from で条件付き更新。0件ならfalse
func (r *OrderGormRepository) TransitionPayment(ctx context.Context, t repo.PaymentTransition) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ? AND payment_status = ?", t.OrderID, t.From).
		Updates(map[string]any{
			"payment_status":   t.To,
			"status":           t.Status,
			"paid_at":          t.PaidAt,
			"reconciled_at":    t.ReconciledAt,
			"payment_metadata": t.Metadata,
		})

	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *OrderGormRepository) FindByNumberAndEmail(ctx context.Context, orderNumber string, email string) (model.Order, error) {
	return r.first(r.db.WithContext(ctx).
		Where("order_number = ? AND LOWER(customer_email) = LOWER(?)", orderNumber, email))
}

func (r *OrderGormRepository) first(q *gorm.DB) (model.Order, error) {
	var o model.Order
	err := q.First(&o).Error
	if isNotFound(err) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}
