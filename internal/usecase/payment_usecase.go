package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"shopbot/internal/domain/model"
	"shopbot/internal/infra/billplz"
	"shopbot/internal/infra/events"
	repo "shopbot/internal/repository"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// Billplzの paid_at 形式
const billplzTimeLayout = "2006-01-02 15:04:05 -0700"

type PaymentUsecase struct {
	tx         repo.TransactionManager
	gateway    PaymentGateway
	events     EventPublisher
	clock      Clock
	logger     echo.Logger
	successURL string
	errorURL   string
}

func NewPaymentUsecase(
	tx repo.TransactionManager,
	gateway PaymentGateway,
	publisher EventPublisher,
	clock Clock,
	logger echo.Logger,
	successURL string,
	errorURL string,
) *PaymentUsecase {
	return &PaymentUsecase{
		tx:         tx,
		gateway:    gateway,
		events:     publisher,
		clock:      clock,
		logger:     logger,
		successURL: successURL,
		errorURL:   errorURL,
	}
}

type ReconcileResult struct {
	OrderID          int64
	OrderNumber      string
	PaymentStatus    model.PaymentStatus
	AlreadyProcessed bool
}

func (u *PaymentUsecase) Gateways() billplz.Catalog {
	return billplz.Gateways()
}

// サーバー間コールバック。署名とキーが両方あるときは検証してから進む
func (u *PaymentUsecase) HandleCallback(ctx context.Context, payload map[string]string, signature string) (ReconcileResult, error) {
	u.logger.Infoj(log.JSON{"msg": "billplz callback received", "payload": withoutSignature(payload)})

	if signature != "" && u.gateway.SignatureEnabled() {
		if !u.gateway.VerifySignature(payload, signature) {
			u.logger.Warnj(log.JSON{"msg": "billplz callback: invalid signature", "bill_id": payload["id"]})
			return ReconcileResult{}, NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
	} else if u.gateway.SignatureEnabled() {
		u.logger.Warnj(log.JSON{"msg": "billplz callback: no signature", "bill_id": payload["id"]})
	}

	cb, err := billplz.ParseCallback(payload)
	if err != nil {
		return ReconcileResult{}, NewValidationError(map[string]string{"id": "id is required"})
	}

	return u.reconcile(ctx, model.PaymentEventCallback, cb, payload)
}

// ブラウザのリダイレクト。戻り先URLを返す（エラーでもURLを返す）
func (u *PaymentUsecase) HandleRedirect(ctx context.Context, params map[string]string) string {
	u.logger.Infoj(log.JSON{"msg": "billplz redirect received", "params": withoutSignature(params)})

	cb, err := billplz.ParseCallback(params)
	if err != nil {
		return u.errorURL + "?type=order_not_found"
	}
	//リダイレクトはbill idだけで引く（reference_2は署名の対象外）
	cb.OrderNumber = ""

	//キーがあるなら署名が通ったときだけ状態を変える。
	//通らないpaid=trueはAPIで請求書を見て確かめる
	trusted := !u.gateway.SignatureEnabled() || u.gateway.VerifySignature(params, params["x_signature"])
	if cb.Paid && !trusted {
		cb, trusted = u.confirmBill(ctx, cb)
	}

	var res ReconcileResult
	if trusted && cb.Paid {
		res, err = u.reconcile(ctx, model.PaymentEventRedirect, cb, params)
	} else {
		res, err = u.lookup(ctx, cb)
	}
	if err != nil {
		if he, ok := AsHTTPError(err); ok && he.Status == http.StatusNotFound {
			return u.errorURL + "?type=order_not_found"
		}
		return u.errorURL + "?type=system_error"
	}

	//表示は保存済みの状態に合わせる（署名の無いpaid=trueは信用しない）
	result := "failed"
	if res.PaymentStatus == model.PaymentStatusPaid {
		result = "success"
	}
	return u.successURL + "/" + url.PathEscape(res.OrderNumber) + "?payment=" + result
}

// 請求書の実際の状態で上書きする。取れなければ信用しない
func (u *PaymentUsecase) confirmBill(ctx context.Context, cb billplz.Callback) (billplz.Callback, bool) {
	bill, err := u.gateway.GetBill(ctx, cb.BillID)
	if err != nil {
		u.logger.Warnj(log.JSON{"msg": "billplz redirect: confirm bill failed", "bill_id": cb.BillID, "error": err.Error()})
		return cb, false
	}
	if bill.ID != cb.BillID {
		return cb, false
	}

	cb.Paid = bill.Paid
	if bill.State != "" {
		cb.State = bill.State
	}
	if !bill.Amount.IsZero() {
		cb.Amount = bill.Amount
	}
	return cb, true
}

func (u *PaymentUsecase) lookup(ctx context.Context, cb billplz.Callback) (ReconcileResult, error) {
	var res ReconcileResult
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindForReconcile(ctx, cb.OrderNumber, cb.BillID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return dbError(err)
		}
		res = ReconcileResult{OrderID: o.ID, OrderNumber: o.OrderNumber, PaymentStatus: o.PaymentStatus}
		return nil
	})
	if err != nil {
		logInternal(u.logger, "billplz redirect lookup failed", err, log.JSON{"bill_id": cb.BillID})
	}
	return res, err
}

// pending からの遷移だけを行う。遷移したトランザクションだけが在庫を戻す
func (u *PaymentUsecase) reconcile(ctx context.Context, source model.PaymentEventSource, cb billplz.Callback, raw map[string]string) (ReconcileResult, error) {
	var (
		res       ReconcileResult
		event     func()
		now       = u.clock.Now()
		restocked []events.RestockedItem
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//行ロック付き。同じ注文のcallback/redirectはここで直列になる
		o, err := r.Orders().FindForReconcile(ctx, cb.OrderNumber, cb.BillID)
		if errors.Is(err, repo.ErrNotFound) {
			u.logger.Errorj(log.JSON{"msg": "billplz: order not found", "order_number": cb.OrderNumber, "bill_id": cb.BillID})
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return dbError(err)
		}

		res = ReconcileResult{OrderID: o.ID, OrderNumber: o.OrderNumber, PaymentStatus: o.PaymentStatus}

		target := model.PaymentStatusFailed
		if cb.Paid {
			target = model.PaymentStatusPaid
		}
		if !model.CanTransitionPayment(o.PaymentStatus, target) {
			res.AlreadyProcessed = true
			if cb.Paid && o.PaymentStatus == model.PaymentStatusFailed {
				//失敗済みの注文に入金が来た。自動では戻さない（返金対応）
				u.logger.Warnj(log.JSON{"msg": "billplz: paid after failure, manual refund needed", "order_number": o.OrderNumber, "bill_id": cb.BillID})
			} else {
				u.logger.Infoj(log.JSON{"msg": "billplz: order already processed", "order_number": o.OrderNumber, "payment_status": o.PaymentStatus})
			}
			return nil
		}

		meta := o.PaymentMetadata.Append(toPaymentEvent(source, cb, raw, now))

		if cb.Paid {
			paidAt := parsePaidAt(cb.PaidAt, now)
			ok, err := r.Orders().TransitionPayment(ctx, repo.PaymentTransition{
				OrderID:      o.ID,
				From:         model.PaymentStatusPending,
				To:           model.PaymentStatusPaid,
				Status:       model.OrderStatusProcessing,
				PaidAt:       &paidAt,
				ReconciledAt: now,
				Metadata:     meta,
			})
			if err != nil {
				return dbError(err)
			}
			if !ok {
				res.AlreadyProcessed = true
				return nil
			}

			if err := u.audit(ctx, r, source, model.AuditActionPaymentPaid, o, model.OrderStatusProcessing, model.PaymentStatusPaid, now); err != nil {
				return err
			}

			res.PaymentStatus = model.PaymentStatusPaid
			payload := events.OrderPaidPayload{
				OrderID:     o.ID,
				OrderNumber: o.OrderNumber,
				BillID:      cb.BillID,
				Amount:      money(cb.Amount),
				PaidAt:      paidAt,
				Source:      string(source),
			}
			event = func() { u.publish(ctx, events.EventOrderPaid, o.OrderNumber, payload) }
			return nil
		}

		ok, err := r.Orders().TransitionPayment(ctx, repo.PaymentTransition{
			OrderID:      o.ID,
			From:         model.PaymentStatusPending,
			To:           model.PaymentStatusFailed,
			Status:       model.OrderStatusCancelled,
			ReconciledAt: now,
			Metadata:     meta,
		})
		if err != nil {
			return dbError(err)
		}
		if !ok {
			res.AlreadyProcessed = true
			return nil
		}

		//在庫戻し。movementが既にあれば戻し済み
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return dbError(err)
		}
		for _, it := range items {
			recorded, err := r.Inventory().CreateMovement(ctx, model.StockMovement{
				ProductID: it.ProductID,
				OrderID:   o.ID,
				Delta:     it.Quantity,
				Reason:    model.StockReasonPaymentFailed,
			})
			if err != nil {
				return dbError(err)
			}
			if !recorded {
				continue
			}

			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					u.logger.Warnj(log.JSON{"msg": "restore stock: product missing", "order_number": o.OrderNumber, "product_id": it.ProductID})
					continue
				}
				return dbError(err)
			}
			restocked = append(restocked, events.RestockedItem{ProductID: it.ProductID, Quantity: it.Quantity})
		}

		if err := u.audit(ctx, r, source, model.AuditActionPaymentFailed, o, model.OrderStatusCancelled, model.PaymentStatusFailed, now); err != nil {
			return err
		}

		res.PaymentStatus = model.PaymentStatusFailed
		payload := events.OrderPaymentFailedPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			BillID:      cb.BillID,
			State:       cb.State,
			Restocked:   restocked,
		}
		event = func() { u.publish(ctx, events.EventOrderPaymentFailed, o.OrderNumber, payload) }

		u.logger.Warnj(log.JSON{"msg": "billplz: payment failed", "order_number": o.OrderNumber, "state": cb.State})
		return nil
	})

	if err != nil {
		logInternal(u.logger, "billplz reconcile failed", err, log.JSON{"bill_id": cb.BillID, "source": source})
		if _, ok := AsHTTPError(err); ok {
			return ReconcileResult{}, err
		}
		return ReconcileResult{}, internalError(err)
	}

	if event != nil {
		u.logger.Infoj(log.JSON{"msg": "billplz: payment reconciled", "order_number": res.OrderNumber, "payment_status": res.PaymentStatus, "source": source})
		event()
	}
	return res, nil
}

func (u *PaymentUsecase) audit(
	ctx context.Context,
	r repo.TxRepos,
	source model.PaymentEventSource,
	action model.AuditAction,
	before model.Order,
	status model.OrderStatus,
	paymentStatus model.PaymentStatus,
	now time.Time,
) error {
	beforeJSON, _ := json.Marshal(map[string]string{
		"status":         string(before.Status),
		"payment_status": string(before.PaymentStatus),
	})
	afterJSON, _ := json.Marshal(map[string]string{
		"status":         string(status),
		"payment_status": string(paymentStatus),
	})

	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		Actor:        string(source),
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   before.ID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    now,
	}); err != nil {
		return dbError(err)
	}
	return nil
}

func (u *PaymentUsecase) publish(ctx context.Context, eventType, key string, payload any) {
	if err := u.events.Publish(ctx, eventType, key, payload); err != nil {
		u.logger.Warnj(log.JSON{"msg": "publish event failed", "event_type": eventType, "key": key, "error": err.Error()})
	}
}

func toPaymentEvent(source model.PaymentEventSource, cb billplz.Callback, raw map[string]string, now time.Time) model.PaymentEvent {
	return model.PaymentEvent{
		Source:        source,
		ReceivedAt:    now,
		BillID:        cb.BillID,
		Paid:          cb.Paid,
		State:         cb.State,
		Amount:        cb.Amount,
		PaidAt:        cb.PaidAt,
		TransactionID: cb.TransactionID,
		Raw:           withoutSignature(raw),
	}
}

// 受け取った時刻が読めなければ now
func parsePaidAt(v *string, now time.Time) time.Time {
	if v == nil {
		return now
	}
	for _, layout := range []string{billplzTimeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, *v); err == nil {
			return t
		}
	}
	return now
}

func withoutSignature(payload map[string]string) map[string]string {
	out := make(map[string]string, len(payload))
	for k, v := range payload {
		if k == "x_signature" {
			continue
		}
		out[k] = v
	}
	return out
}
