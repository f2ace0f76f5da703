package repository

import (
	"context"
	"time"

	"shopbot/internal/domain/model"
)

type SettingRepository interface {
	//無ければ is_active=true で作る
	GetActivation(ctx context.Context, name string) (model.AIActivation, error)
	SetActivation(ctx context.Context, name string, active bool, at time.Time) (model.AIActivation, error)

	//無ければデフォルト値を返す（保存はしない）
	GetEcommerce(ctx context.Context) (model.EcommerceSetting, error)
	SaveEcommerce(ctx context.Context, s model.EcommerceSetting) (model.EcommerceSetting, error)
}
