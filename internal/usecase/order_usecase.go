package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopbot/internal/domain/model"
	repo "shopbot/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

// 注文の追跡（注文番号 + メールで本人確認）
type OrderUsecase struct {
	orders repo.OrderRepository
	items  repo.OrderItemRepository
	tokens TrackingTokenService
	appURL string
	logger echo.Logger
}

func NewOrderUsecase(
	orders repo.OrderRepository,
	items repo.OrderItemRepository,
	tokens TrackingTokenService,
	appURL string,
	logger echo.Logger,
) *OrderUsecase {
	return &OrderUsecase{orders: orders, items: items, tokens: tokens, appURL: appURL, logger: logger}
}

type OrderItemOutput struct {
	ProductID    int64  `json:"product_id"`
	ProductName  string `json:"product_name"`
	ProductPrice string `json:"product_price"`
	Quantity     int64  `json:"quantity"`
	Color        string `json:"color,omitempty"`
	Subtotal     string `json:"subtotal"`
}

type OrderOutput struct {
	ID               int64             `json:"id"`
	OrderNumber      string            `json:"order_number"`
	CustomerName     string            `json:"customer_name"`
	CustomerEmail    string            `json:"customer_email"`
	DeliveryMethod   string            `json:"delivery_method"`
	PaymentMethod    string            `json:"payment_method"`
	Subtotal         string            `json:"subtotal"`
	DeliveryDiscount string            `json:"delivery_discount"`
	PaymentDiscount  string            `json:"payment_discount"`
	TotalAmount      string            `json:"total_amount"`
	Status           string            `json:"status"`
	PaymentStatus    string            `json:"payment_status"`
	PaidAt           *time.Time        `json:"paid_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	Items            []OrderItemOutput `json:"items"`
}

type TrackOutput struct {
	Order         OrderOutput `json:"order"`
	TrackingURL   string      `json:"tracking_url"`
	TrackingToken string      `json:"tracking_token"`
	ExpiresAt     time.Time   `json:"expires_at"`
}

// 注文番号とメールが一致したら署名付きリンクを発行
func (u *OrderUsecase) Track(ctx context.Context, orderNumber string, email string) (TrackOutput, error) {
	orderNumber = strings.TrimSpace(orderNumber)
	email = strings.TrimSpace(email)
	if email == "" {
		return TrackOutput{}, NewValidationError(map[string]string{"customer_email": "customer_email is required"})
	}

	o, err := u.orders.FindByNumberAndEmail(ctx, orderNumber, email)
	if errors.Is(err, repo.ErrNotFound) {
		//どちらが違うかは教えない
		return TrackOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return TrackOutput{}, dbError(err)
	}

	out, err := u.withItems(ctx, o)
	if err != nil {
		return TrackOutput{}, err
	}

	token, exp, err := u.tokens.Issue(o.OrderNumber)
	if err != nil {
		u.logger.Errorj(log.JSON{"msg": "issue tracking token failed", "order_number": o.OrderNumber, "error": err.Error()})
		return TrackOutput{}, internalError(err)
	}

	return TrackOutput{
		Order:         out,
		TrackingURL:   u.appURL + "/orders/view?token=" + url.QueryEscape(token),
		TrackingToken: token,
		ExpiresAt:     exp,
	}, nil
}

// 署名付きリンクから注文を表示
func (u *OrderUsecase) View(ctx context.Context, token string) (OrderOutput, error) {
	number, err := u.tokens.Parse(token)
	if err != nil {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid or expired tracking link")
	}

	o, err := u.orders.FindByNumber(ctx, number)
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return OrderOutput{}, dbError(err)
	}
	return u.withItems(ctx, o)
}

// 注文詳細。メールが一致しないと404（他人の注文は見せない）
func (u *OrderUsecase) Detail(ctx context.Context, orderNumber string, email string) (OrderOutput, error) {
	if strings.TrimSpace(email) == "" {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	o, err := u.orders.FindByNumberAndEmail(ctx, strings.TrimSpace(orderNumber), strings.TrimSpace(email))
	if errors.Is(err, repo.ErrNotFound) {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "order not found")
	}
	if err != nil {
		return OrderOutput{}, dbError(err)
	}
	return u.withItems(ctx, o)
}

func (u *OrderUsecase) withItems(ctx context.Context, o model.Order) (OrderOutput, error) {
	items, err := u.items.ListByOrderID(ctx, o.ID)
	if err != nil {
		return OrderOutput{}, dbError(err)
	}
	return toOrderOutput(o, items), nil
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:    it.ProductID,
			ProductName:  it.ProductName,
			ProductPrice: money(it.ProductPrice),
			Quantity:     it.Quantity,
			Color:        it.Color,
			Subtotal:     money(it.Subtotal),
		})
	}

	return OrderOutput{
		ID:               o.ID,
		OrderNumber:      o.OrderNumber,
		CustomerName:     o.CustomerName,
		CustomerEmail:    o.CustomerEmail,
		DeliveryMethod:   string(o.DeliveryMethod),
		PaymentMethod:    string(o.PaymentMethod),
		Subtotal:         money(o.Subtotal),
		DeliveryDiscount: money(o.DeliveryDiscount),
		PaymentDiscount:  money(o.PaymentDiscount),
		TotalAmount:      money(o.TotalAmount),
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		PaidAt:           o.PaidAt,
		CreatedAt:        o.CreatedAt,
		Items:            outItems,
	}
}

// 金額は小数2桁の文字列で返す
func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
