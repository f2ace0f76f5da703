package model

import "time"

const ChatbotActivationName = "chatbot"

// 機能ごとのON/OFF（今はchatbotだけ）
type AIActivation struct {
	ID            int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	IsActive      bool      `gorm:"not null" json:"is_active"`
	Description   string    `gorm:"type:varchar(255)" json:"description"`
	LastUpdatedAt time.Time `gorm:"not null" json:"last_updated_at"`
	CreatedAt     time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (AIActivation) TableName() string { return "ai_activations" }

// ショップ画面のカウントダウン設定（1行だけ）。
// 0/falseも正しい値なのでgormのdefaultタグは付けない
type EcommerceSetting struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CountdownEnabled bool      `gorm:"not null" json:"countdown_enabled"`
	CountdownDays    int       `gorm:"not null" json:"countdown_days"`
	CountdownHours   int       `gorm:"not null" json:"countdown_hours"`
	CountdownMinutes int       `gorm:"not null" json:"countdown_minutes"`
	UrgencyText      string    `gorm:"type:text;not null" json:"urgency_text"`
	BackgroundColor  string    `gorm:"type:varchar(20);not null" json:"background_color"`
	CreatedAt        time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func DefaultEcommerceSetting() EcommerceSetting {
	return EcommerceSetting{
		CountdownEnabled: true,
		CountdownDays:    3,
		CountdownHours:   11,
		CountdownMinutes: 31,
		UrgencyText:      "TAWARAN TERHAD! Promosi Ansuran Berakhir Dalam:",
		BackgroundColor:  "#1f2937",
	}
}
