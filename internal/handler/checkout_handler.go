package handler

import (
	"net/http"

	"shopbot/internal/usecase"

	"github.com/labstack/echo/v4"
)

type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

// DI
func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type CheckoutRequest struct {
	CustomerName   string `json:"customer_name" validate:"required,max=255"`
	CustomerPhone  string `json:"customer_phone" validate:"required,max=20"`
	CustomerEmail  string `json:"customer_email" validate:"required,email,max=255"`
	DeliveryMethod string `json:"delivery_method" validate:"required,oneof=cod postage walkin"`
	PaymentMethod  string `json:"payment_method" validate:"required,oneof=full booking walkin"`
	ProductID      int64  `json:"product_id" validate:"required,gt=0"`
	Quantity       int64  `json:"quantity" validate:"gte=1"`
	Color          string `json:"color" validate:"max=50"`
	BankCode       string `json:"bank_code" validate:"max=50"`

	//postageのときの配送先（任意）
	AddressLine1 string `json:"address_line1" validate:"max=255"`
	AddressLine2 string `json:"address_line2" validate:"max=255"`
	City         string `json:"city" validate:"max=100"`
	State        string `json:"state" validate:"max=100"`
	Postcode     string `json:"postcode" validate:"max=10"`
	Notes        string `json:"notes" validate:"max=1000"`
}

func (h *CheckoutHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/checkout", h.create)
	//COD/店頭用。請求書は作らない
	e.POST("/orders", h.createOffline)
}

func (h *CheckoutHandler) create(c echo.Context) error {
	var req CheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreateOrder(c.Request().Context(), req.toInput())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

func (h *CheckoutHandler) createOffline(c echo.Context) error {
	var req CheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.CreateOfflineOrder(c.Request().Context(), req.toInput())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{"order": out})
}

func (req CheckoutRequest) toInput() usecase.CheckoutInput {
	return usecase.CheckoutInput{
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		CustomerEmail:  req.CustomerEmail,
		DeliveryMethod: req.DeliveryMethod,
		PaymentMethod:  req.PaymentMethod,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		Color:          req.Color,
		BankCode:       req.BankCode,
		AddressLine1:   req.AddressLine1,
		AddressLine2:   req.AddressLine2,
		City:           req.City,
		State:          req.State,
		Postcode:       req.Postcode,
		Notes:          req.Notes,
	}
}
