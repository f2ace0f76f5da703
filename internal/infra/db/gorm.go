package db

import (
	"shopbot/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}

// Migrate はテーブルを作る/足りない列を足す
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.Order{},
		&model.OrderItem{},
		&model.OrderSequence{},
		&model.StockMovement{},
		&model.AuditLog{},
		&model.Customer{},
		&model.MessageLog{},
		&model.AIActivation{},
		&model.EcommerceSetting{},
	)
}
