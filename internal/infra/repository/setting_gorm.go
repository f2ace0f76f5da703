package repository

import (
	"context"
	"time"

	"shopbot/internal/domain/model"

	"gorm.io/gorm"
)

type SettingGormRepository struct {
	db *gorm.DB
}

func NewSettingGormRepository(db *gorm.DB) *SettingGormRepository {
	return &SettingGormRepository{db: db}
}

// 初回はis_active=trueで作る
func (r *SettingGormRepository) GetActivation(ctx context.Context, name string) (model.AIActivation, error) {
	var a model.AIActivation
	err := r.db.WithContext(ctx).
		Where(model.AIActivation{Name: name}).
		Attrs(model.AIActivation{IsActive: true, LastUpdatedAt: time.Now()}).
		FirstOrCreate(&a).Error
	if err != nil {
		return model.AIActivation{}, err
	}
	return a, nil
}

func (r *SettingGormRepository) SetActivation(ctx context.Context, name string, active bool, at time.Time) (model.AIActivation, error) {
	a, err := r.GetActivation(ctx, name)
	if err != nil {
		return model.AIActivation{}, err
	}

	//falseも書きたいのでmapで更新
	if err := r.db.WithContext(ctx).Model(&a).Updates(map[string]any{
		"is_active":       active,
		"last_updated_at": at,
	}).Error; err != nil {
		return model.AIActivation{}, err
	}
	a.IsActive = active
	a.LastUpdatedAt = at
	return a, nil
}

func (r *SettingGormRepository) GetEcommerce(ctx context.Context) (model.EcommerceSetting, error) {
	var s model.EcommerceSetting
	err := r.db.WithContext(ctx).Order("id asc").First(&s).Error
	if isNotFound(err) {
		return model.DefaultEcommerceSetting(), nil
	}
	if err != nil {
		return model.EcommerceSetting{}, err
	}
	return s, nil
}

// 1行だけ持つ。なければ作る
func (r *SettingGormRepository) SaveEcommerce(ctx context.Context, s model.EcommerceSetting) (model.EcommerceSetting, error) {
	var current model.EcommerceSetting
	err := r.db.WithContext(ctx).Order("id asc").First(&current).Error
	if isNotFound(err) {
		s.ID = 0
		if err := r.db.WithContext(ctx).Create(&s).Error; err != nil {
			return model.EcommerceSetting{}, err
		}
		return s, nil
	}
	if err != nil {
		return model.EcommerceSetting{}, err
	}

	if err := r.db.WithContext(ctx).Model(&current).Updates(map[string]any{
		"countdown_enabled": s.CountdownEnabled,
		"countdown_days":    s.CountdownDays,
		"countdown_hours":   s.CountdownHours,
		"countdown_minutes": s.CountdownMinutes,
		"urgency_text":      s.UrgencyText,
		"background_color":  s.BackgroundColor,
	}).Error; err != nil {
		return model.EcommerceSetting{}, err
	}
	s.ID = current.ID
	s.CreatedAt = current.CreatedAt
	return s, nil
}
