package usecase_test

import (
	"context"
	"testing"
	"time"

	"shopbot/internal/domain/model"
	"shopbot/internal/repository/memstore"
	"shopbot/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsUsecase_ChatbotStatus_DefaultActive(t *testing.T) {
	s := memstore.New()
	uc := usecase.NewSettingsUsecase(s.Settings(), &fixedClock{now: time.Now()}, testLogger())

	st, err := uc.ChatbotStatus(context.Background())
	require.NoError(t, err)
	assert.True(t, st.ChatbotActive)
}

func TestSettingsUsecase_ToggleChatbot(t *testing.T) {
	s := memstore.New()
	at := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	uc := usecase.NewSettingsUsecase(s.Settings(), &fixedClock{now: at}, testLogger())

	st, err := uc.ToggleChatbot(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, st.ChatbotActive)
	assert.True(t, st.LastUpdated.Equal(at))

	st, err = uc.ChatbotStatus(context.Background())
	require.NoError(t, err)
	assert.False(t, st.ChatbotActive)
}

func TestSettingsUsecase_Ecommerce_DefaultThenSave(t *testing.T) {
	s := memstore.New()
	uc := usecase.NewSettingsUsecase(s.Settings(), &fixedClock{now: time.Now()}, testLogger())

	got, err := uc.Ecommerce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.DefaultEcommerceSetting().UrgencyText, got.UrgencyText)

	//0/falseもそのまま保存される
	saved, err := uc.SaveEcommerce(context.Background(), usecase.EcommerceSettingInput{
		CountdownEnabled: false,
		CountdownDays:    0,
		CountdownHours:   0,
		CountdownMinutes: 0,
		UrgencyText:      "Promosi tamat!",
		BackgroundColor:  "#ff0000",
	})
	require.NoError(t, err)
	assert.False(t, saved.CountdownEnabled)

	got, err = uc.Ecommerce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Promosi tamat!", got.UrgencyText)
	assert.Equal(t, 0, got.CountdownDays)
	assert.False(t, got.CountdownEnabled)
}

func TestSettingsUsecase_SaveEcommerce_Validation(t *testing.T) {
	s := memstore.New()
	uc := usecase.NewSettingsUsecase(s.Settings(), &fixedClock{now: time.Now()}, testLogger())

	_, err := uc.SaveEcommerce(context.Background(), usecase.EcommerceSettingInput{
		CountdownDays:    -1,
		CountdownHours:   24,
		CountdownMinutes: 60,
		UrgencyText:      " ",
		BackgroundColor:  "red",
	})
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	for _, k := range []string{"countdown_days", "countdown_hours", "countdown_minutes", "urgency_text", "background_color"} {
		assert.Contains(t, he.Fields, k)
	}
}
