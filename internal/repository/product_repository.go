package repository

import (
	"context"
	"errors"

	"shopbot/internal/domain/model"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
)

// 商品の取得だけを約束（カタログ管理は別システム）
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)

	//行ロック付き。Tx内でだけ意味がある
	FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error)
}
