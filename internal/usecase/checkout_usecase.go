package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"shopbot/internal/domain/model"
	"shopbot/internal/domain/pricing"
	"shopbot/internal/infra/billplz"
	"shopbot/internal/infra/events"
	repo "shopbot/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

type CheckoutUsecase struct {
	tx             repo.TransactionManager
	gateway        PaymentGateway
	events         EventPublisher
	idGen          IDGenerator
	clock          Clock
	loc            *time.Location
	gatewayTimeout time.Duration
	logger         echo.Logger
}

// DI
func NewCheckoutUsecase(
	tx repo.TransactionManager,
	gateway PaymentGateway,
	publisher EventPublisher,
	idGen IDGenerator,
	clock Clock,
	loc *time.Location,
	gatewayTimeout time.Duration,
	logger echo.Logger,
) *CheckoutUsecase {
	return &CheckoutUsecase{
		tx:             tx,
		gateway:        gateway,
		events:         publisher,
		idGen:          idGen,
		clock:          clock,
		loc:            loc,
		gatewayTimeout: gatewayTimeout,
		logger:         logger,
	}
}

type CheckoutInput struct {
	CustomerName   string
	CustomerPhone  string
	CustomerEmail  string
	DeliveryMethod string
	PaymentMethod  string
	ProductID      int64
	Quantity       int64
	Color          string
	BankCode       string

	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Postcode     string
	Notes        string
}

type CheckoutOutput struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	BillURL     string `json:"bill_url"`
	BillID      string `json:"bill_id"`
	TotalAmount string `json:"total_amount"`
}

// 注文作成〜在庫減算〜請求書作成を1トランザクションで行う。
// 途中で失敗したら注文も明細も在庫も残らない
func (u *CheckoutUsecase) CreateOrder(ctx context.Context, in CheckoutInput) (CheckoutOutput, error) {
	if err := validateCheckout(in); err != nil {
		return CheckoutOutput{}, err
	}

	var (
		out     CheckoutOutput
		created model.Order
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, _, err := u.placeOrder(ctx, r, in)
		if err != nil {
			return err
		}

		//請求書作成。タイムアウトしてもリトライしない
		gwCtx, cancel := context.WithTimeout(ctx, u.gatewayTimeout)
		bill, err := u.gateway.CreateBill(gwCtx, billplz.CreateBillInput{
			OrderNumber: o.OrderNumber,
			Name:        o.CustomerName,
			Email:       o.CustomerEmail,
			Mobile:      o.CustomerPhone,
			Amount:      o.TotalAmount,
			BankCode:    in.BankCode,
		})
		cancel()
		if err != nil {
			return &HTTPError{Status: http.StatusInternalServerError, Message: "failed to create payment bill", Err: err}
		}

		meta := model.PaymentMetadata{Bill: bill.Raw}
		if err := r.Orders().AttachBill(ctx, o.ID, repo.BillAttachment{
			BillID:       bill.ID,
			CollectionID: bill.CollectionID,
			Metadata:     meta,
		}); err != nil {
			return dbError(err)
		}

		billID, collectionID := bill.ID, bill.CollectionID
		o.BillplzBillID = &billID
		o.BillplzCollectionID = &collectionID
		o.PaymentMetadata = meta
		created = o

		out = CheckoutOutput{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			BillURL:     bill.URL,
			BillID:      bill.ID,
			TotalAmount: money(o.TotalAmount),
		}
		return nil
	})

	if err != nil {
		//想定外はrollback済み。中身は返さない
		logInternal(u.logger, "checkout failed", err, log.JSON{"product_id": in.ProductID})
		if _, ok := AsHTTPError(err); ok {
			return CheckoutOutput{}, err
		}
		return CheckoutOutput{}, internalError(err)
	}

	u.created(ctx, created, in, out.BillID)
	return out, nil
}

// 請求書を作らない注文（COD/店頭）。決済は後で店側が確認する
func (u *CheckoutUsecase) CreateOfflineOrder(ctx context.Context, in CheckoutInput) (OrderOutput, error) {
	if err := validateCheckout(in); err != nil {
		return OrderOutput{}, err
	}

	var out OrderOutput
	var created model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, item, err := u.placeOrder(ctx, r, in)
		if err != nil {
			return err
		}
		created = o
		out = toOrderOutput(o, []model.OrderItem{item})
		return nil
	})

	if err != nil {
		logInternal(u.logger, "offline order failed", err, log.JSON{"product_id": in.ProductID})
		if _, ok := AsHTTPError(err); ok {
			return OrderOutput{}, err
		}
		return OrderOutput{}, internalError(err)
	}

	u.created(ctx, created, in, "")
	return out, nil
}

func validateCheckout(in CheckoutInput) error {
	if in.ProductID <= 0 {
		return NewValidationError(map[string]string{"product_id": "product_id is required"})
	}
	if in.Quantity < 1 {
		return NewValidationError(map[string]string{"quantity": "quantity must be at least 1"})
	}
	return nil
}

// 商品ロック → 金額 → 注文番号 → 注文/明細 → 在庫減算。tx内で呼ぶ
func (u *CheckoutUsecase) placeOrder(ctx context.Context, r repo.TxRepos, in CheckoutInput) (model.Order, model.OrderItem, error) {
	//商品を行ロックで取る（同じ商品の注文はここで順番待ち）
	p, err := r.Products().FindByIDForUpdate(ctx, in.ProductID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && !p.IsActive) {
		return model.Order{}, model.OrderItem{}, NewHTTPError(http.StatusNotFound, "product not found")
	}
	if err != nil {
		return model.Order{}, model.OrderItem{}, dbError(err)
	}

	//在庫チェック（まだ何も書いていない）
	if p.Stock < in.Quantity {
		return model.Order{}, model.OrderItem{}, NewInsufficientStockError(p.Stock)
	}

	//金額計算
	subtotal := pricing.Subtotal(p.Price, in.Quantity)
	quote := pricing.Calculate(model.DeliveryMethod(in.DeliveryMethod), model.PaymentMethod(in.PaymentMethod), subtotal)

	//注文番号（日付はマレーシア時間で切る）
	now := u.clock.Now().In(u.loc)
	seq, err := r.Orders().NextSequence(ctx, now.Format("20060102"))
	if err != nil {
		return model.Order{}, model.OrderItem{}, dbError(err)
	}

	o, err := r.Orders().Create(ctx, model.Order{
		OrderNumber:      model.FormatOrderNumber(now, seq),
		CustomerName:     strings.TrimSpace(in.CustomerName),
		CustomerPhone:    strings.TrimSpace(in.CustomerPhone),
		CustomerEmail:    strings.TrimSpace(in.CustomerEmail),
		AddressLine1:     in.AddressLine1,
		AddressLine2:     in.AddressLine2,
		City:             in.City,
		State:            in.State,
		Postcode:         in.Postcode,
		Notes:            in.Notes,
		DeliveryMethod:   model.DeliveryMethod(in.DeliveryMethod),
		PaymentMethod:    model.PaymentMethod(in.PaymentMethod),
		Subtotal:         quote.Subtotal,
		DeliveryDiscount: quote.DeliveryDiscount,
		PaymentDiscount:  quote.PaymentDiscount,
		TotalAmount:      quote.TotalAmount,
		Status:           model.OrderStatusPending,
		PaymentStatus:    model.PaymentStatusPending,
		IdempotencyKey:   u.idGen.NewID(),
	})
	if err != nil {
		return model.Order{}, model.OrderItem{}, dbError(err)
	}

	//明細（名前と価格はこの時点のスナップショット）
	item, err := r.OrderItems().Create(ctx, model.OrderItem{
		OrderID:      o.ID,
		ProductID:    p.ID,
		ProductName:  p.Name,
		ProductPrice: p.Price,
		Quantity:     in.Quantity,
		Color:        in.Color,
		Subtotal:     quote.Subtotal,
	})
	if err != nil {
		return model.Order{}, model.OrderItem{}, dbError(err)
	}

	//在庫減算（条件付きUPDATE）
	ok, err := r.Inventory().DecreaseStockIfEnough(ctx, p.ID, in.Quantity)
	if err != nil {
		return model.Order{}, model.OrderItem{}, dbError(err)
	}
	if !ok {
		return model.Order{}, model.OrderItem{}, NewInsufficientStockError(p.Stock)
	}
	if _, err := r.Inventory().CreateMovement(ctx, model.StockMovement{
		ProductID: p.ID,
		OrderID:   o.ID,
		Delta:     -in.Quantity,
		Reason:    model.StockReasonCheckout,
	}); err != nil {
		return model.Order{}, model.OrderItem{}, dbError(err)
	}

	return o, item, nil
}

// commit後のログとイベント
func (u *CheckoutUsecase) created(ctx context.Context, o model.Order, in CheckoutInput, billID string) {
	u.logger.Infoj(log.JSON{
		"msg":          "checkout: order created",
		"order_id":     o.ID,
		"order_number": o.OrderNumber,
		"total_amount": money(o.TotalAmount),
		"bill_id":      billID,
	})

	u.publish(ctx, events.EventOrderCreated, o.OrderNumber, events.OrderCreatedPayload{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		ProductID:   in.ProductID,
		Quantity:    in.Quantity,
		TotalAmount: money(o.TotalAmount),
		BillID:      billID,
	})
}

func (u *CheckoutUsecase) publish(ctx context.Context, eventType, key string, payload any) {
	if err := u.events.Publish(ctx, eventType, key, payload); err != nil {
		u.logger.Warnj(log.JSON{"msg": "publish event failed", "event_type": eventType, "key": key, "error": err.Error()})
	}
}
