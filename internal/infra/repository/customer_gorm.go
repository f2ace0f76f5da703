package repository

import (
	"context"

	"shopbot/internal/domain/model"
	repo "shopbot/internal/repository"

	"gorm.io/gorm"
)

type CustomerGormRepository struct {
	db *gorm.DB
}

func NewCustomerGormRepository(db *gorm.DB) *CustomerGormRepository {
	return &CustomerGormRepository{db: db}
}

func (r *CustomerGormRepository) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Customer{}, repo.ErrDuplicate
		}
		return model.Customer{}, err
	}
	return c, nil
}

func (r *CustomerGormRepository) FindByID(ctx context.Context, id int64) (model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).First(&c, id).Error
	if isNotFound(err) {
		return model.Customer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

func (r *CustomerGormRepository) FindByPhone(ctx context.Context, phone string) (model.Customer, error) {
	var c model.Customer
	err := r.db.WithContext(ctx).Where("phone_number = ?", phone).First(&c).Error
	if isNotFound(err) {
		return model.Customer{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Customer{}, err
	}
	return c, nil
}

type MessageLogGormRepository struct {
	db *gorm.DB
}

func NewMessageLogGormRepository(db *gorm.DB) *MessageLogGormRepository {
	return &MessageLogGormRepository{db: db}
}

func (r *MessageLogGormRepository) Create(ctx context.Context, m model.MessageLog) (model.MessageLog, error) {
	m.Customer = nil
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return model.MessageLog{}, err
	}
	return m, nil
}

// 新しい順
func (r *MessageLogGormRepository) ListRecent(ctx context.Context, limit int) ([]model.MessageLog, error) {
	var items []model.MessageLog
	q := r.db.WithContext(ctx).Preload("Customer").Order("created_at desc").Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&items).Error; err != nil {
		return []model.MessageLog{}, err
	}
	return items, nil
}

// 会話表示用なので古い順
func (r *MessageLogGormRepository) ListByCustomerID(ctx context.Context, customerID int64) ([]model.MessageLog, error) {
	var items []model.MessageLog
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at asc").Order("id asc").
		Find(&items).Error; err != nil {
		return []model.MessageLog{}, err
	}
	return items, nil
}
