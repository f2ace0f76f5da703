package handler

import (
	"net/http"

	"shopbot/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 注文追跡（ログイン無し。注文番号 + メールか、署名付きリンク）
type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

type TrackRequest struct {
	CustomerEmail string `json:"customer_email" validate:"required,email"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, throttle echo.MiddlewareFunc) {
	g := e.Group("/orders")

	g.POST("/track/:order_number", h.track, throttle)
	g.GET("/view", h.view)
	g.GET("/:order_number", h.detail)
}

func (h *OrderHandler) track(c echo.Context) error {
	var req TrackRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Track(c.Request().Context(), c.Param("order_number"), req.CustomerEmail)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) view(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid or expired tracking link"})
	}

	out, err := h.uc.View(c.Request().Context(), token)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	out, err := h.uc.Detail(c.Request().Context(), c.Param("order_number"), c.QueryParam("customer_email"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
