package handler

import (
	"net/http"

	"shopbot/internal/usecase"

	"github.com/labstack/echo/v4"
)

type SettingsHandler struct {
	uc *usecase.SettingsUsecase
}

// DI
func NewSettingsHandler(uc *usecase.SettingsUsecase) *SettingsHandler {
	return &SettingsHandler{uc: uc}
}

type ChatbotToggleRequest struct {
	Active *bool `json:"active" validate:"required"`
}

type EcommerceSettingRequest struct {
	CountdownEnabled bool   `json:"countdown_enabled"`
	CountdownDays    int    `json:"countdown_days"`
	CountdownHours   int    `json:"countdown_hours"`
	CountdownMinutes int    `json:"countdown_minutes"`
	UrgencyText      string `json:"urgency_text"`
	BackgroundColor  string `json:"background_color"`
}

func (h *SettingsHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/settings")

	g.POST("/chatbot-toggle", h.toggleChatbot)
	g.GET("/chatbot-status", h.chatbotStatus)
	g.GET("/ecommerce", h.ecommerce)
	g.POST("/ecommerce", h.saveEcommerce)
}

func (h *SettingsHandler) toggleChatbot(c echo.Context) error {
	var req ChatbotToggleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	st, err := h.uc.ToggleChatbot(c.Request().Context(), *req.Active)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *SettingsHandler) chatbotStatus(c echo.Context) error {
	st, err := h.uc.ChatbotStatus(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (h *SettingsHandler) ecommerce(c echo.Context) error {
	s, err := h.uc.Ecommerce(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *SettingsHandler) saveEcommerce(c echo.Context) error {
	var req EcommerceSettingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	s, err := h.uc.SaveEcommerce(c.Request().Context(), usecase.EcommerceSettingInput{
		CountdownEnabled: req.CountdownEnabled,
		CountdownDays:    req.CountdownDays,
		CountdownHours:   req.CountdownHours,
		CountdownMinutes: req.CountdownMinutes,
		UrgencyText:      req.UrgencyText,
		BackgroundColor:  req.BackgroundColor,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, s)
}
