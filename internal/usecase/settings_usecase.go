package usecase

import (
	"context"
	"regexp"
	"strings"
	"time"

	"shopbot/internal/domain/model"
	repo "shopbot/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type SettingsUsecase struct {
	settings repo.SettingRepository
	clock    Clock
	logger   echo.Logger
}

func NewSettingsUsecase(settings repo.SettingRepository, clock Clock, logger echo.Logger) *SettingsUsecase {
	return &SettingsUsecase{settings: settings, clock: clock, logger: logger}
}

type ChatbotStatus struct {
	ChatbotActive bool      `json:"chatbot_active"`
	LastUpdated   time.Time `json:"last_updated"`
}

// リクエストごとに1回読む（middlewareから）
func (u *SettingsUsecase) ChatbotStatus(ctx context.Context) (ChatbotStatus, error) {
	a, err := u.settings.GetActivation(ctx, model.ChatbotActivationName)
	if err != nil {
		return ChatbotStatus{}, dbError(err)
	}
	return ChatbotStatus{ChatbotActive: a.IsActive, LastUpdated: a.LastUpdatedAt}, nil
}

func (u *SettingsUsecase) ToggleChatbot(ctx context.Context, active bool) (ChatbotStatus, error) {
	a, err := u.settings.SetActivation(ctx, model.ChatbotActivationName, active, u.clock.Now())
	if err != nil {
		return ChatbotStatus{}, dbError(err)
	}
	u.logger.Infoj(log.JSON{"msg": "chatbot toggled", "active": a.IsActive})
	return ChatbotStatus{ChatbotActive: a.IsActive, LastUpdated: a.LastUpdatedAt}, nil
}

func (u *SettingsUsecase) Ecommerce(ctx context.Context) (model.EcommerceSetting, error) {
	s, err := u.settings.GetEcommerce(ctx)
	if err != nil {
		return model.EcommerceSetting{}, dbError(err)
	}
	return s, nil
}

type EcommerceSettingInput struct {
	CountdownEnabled bool
	CountdownDays    int
	CountdownHours   int
	CountdownMinutes int
	UrgencyText      string
	BackgroundColor  string
}

func (u *SettingsUsecase) SaveEcommerce(ctx context.Context, in EcommerceSettingInput) (model.EcommerceSetting, error) {
	fields := map[string]string{}
	if in.CountdownDays < 0 {
		fields["countdown_days"] = "countdown_days must be at least 0"
	}
	if in.CountdownHours < 0 || in.CountdownHours > 23 {
		fields["countdown_hours"] = "countdown_hours must be between 0 and 23"
	}
	if in.CountdownMinutes < 0 || in.CountdownMinutes > 59 {
		fields["countdown_minutes"] = "countdown_minutes must be between 0 and 59"
	}
	text := strings.TrimSpace(in.UrgencyText)
	if text == "" {
		fields["urgency_text"] = "urgency_text is required"
	}
	if !hexColor.MatchString(in.BackgroundColor) {
		fields["background_color"] = "background_color must be a hex color like #1f2937"
	}
	if len(fields) > 0 {
		return model.EcommerceSetting{}, NewValidationError(fields)
	}

	s, err := u.settings.SaveEcommerce(ctx, model.EcommerceSetting{
		CountdownEnabled: in.CountdownEnabled,
		CountdownDays:    in.CountdownDays,
		CountdownHours:   in.CountdownHours,
		CountdownMinutes: in.CountdownMinutes,
		UrgencyText:      text,
		BackgroundColor:  in.BackgroundColor,
	})
	if err != nil {
		return model.EcommerceSetting{}, dbError(err)
	}
	return s, nil
}
