package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"shopbot/internal/infra/billplz"
	"shopbot/internal/usecase"

	"github.com/labstack/echo/v4"
)

// Billplzからのcallback/redirect
type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

// DI
func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

type WebhookResponse struct {
	Status           string `json:"status"`
	OrderNumber      string `json:"order_number"`
	PaymentStatus    string `json:"payment_status"`
	AlreadyProcessed bool   `json:"already_processed"`
}

func (h *PaymentHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/payment/gateways", h.gateways)
	e.POST("/webhook/payment", h.webhook)
	e.GET("/payment/redirect", h.redirect)
}

func (h *PaymentHandler) gateways(c echo.Context) error {
	return c.JSON(http.StatusOK, h.uc.Gateways())
}

func (h *PaymentHandler) webhook(c echo.Context) error {
	payload, err := callbackPayload(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
	}

	//ヘッダー優先、無ければbodyのx_signature
	sig := c.Request().Header.Get("X-Signature")
	if sig == "" {
		sig = payload["x_signature"]
	}

	res, err := h.uc.HandleCallback(c.Request().Context(), payload, sig)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, WebhookResponse{
		Status:           "ok",
		OrderNumber:      res.OrderNumber,
		PaymentStatus:    string(res.PaymentStatus),
		AlreadyProcessed: res.AlreadyProcessed,
	})
}

// 結果に関係なく画面へ302
func (h *PaymentHandler) redirect(c echo.Context) error {
	params := billplz.FlattenRedirectParams(c.QueryParams())
	return c.Redirect(http.StatusFound, h.uc.HandleRedirect(c.Request().Context(), params))
}

// Billplzはform、テスト等はJSONで来る
func callbackPayload(c echo.Context) (map[string]string, error) {
	ct := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		form, err := c.FormParams()
		if err != nil {
			return nil, err
		}
		return billplz.FormValues(form), nil
	}

	var raw map[string]any
	if err := json.NewDecoder(c.Request().Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch x := v.(type) {
		case nil:
		case string:
			out[k] = x
		case bool:
			out[k] = strconv.FormatBool(x)
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			b, _ := json.Marshal(x)
			out[k] = string(b)
		}
	}
	return out, nil
}
