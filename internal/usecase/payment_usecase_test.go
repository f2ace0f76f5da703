package usecase_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"shopbot/internal/domain/model"
	"shopbot/internal/infra/billplz"
	"shopbot/internal/infra/events"
	"shopbot/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testSignatureKey = "S-s7aTR8Ln6XiGY8KeqMCTnA"
	successURL       = "https://shop.example.com/payment/success"
	errorURL         = "https://shop.example.com/payment/success/error"
)

type paymentFixture struct {
	*checkoutFixture
	pay     *usecase.PaymentUsecase
	product model.Product
	order   usecase.CheckoutOutput
}

// チェックアウト済み（在庫10 → 8）の注文を1件用意する
func newPaymentFixture(t *testing.T, key string) *paymentFixture {
	t.Helper()
	cf := newCheckoutFixture(t, time.Second)
	cf.gateway.Key = key
	cf.billOK("W_79pJDk")
	cf.events.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	p := seedTudung(cf.store, 10)
	out, err := cf.uc.CreateOrder(context.Background(), checkoutInput(p.ID, 2))
	require.NoError(t, err)

	f := &paymentFixture{checkoutFixture: cf, product: p, order: out}
	f.pay = usecase.NewPaymentUsecase(cf.store, cf.gateway, cf.events, cf.clock, testLogger(), successURL, errorURL)
	return f
}

func (f *paymentFixture) payload(paid bool) map[string]string {
	p := map[string]string{
		"id":            f.order.BillID,
		"collection_id": "inbmmepb",
		"paid":          "false",
		"state":         "due",
		"amount":        "18000",
		"reference_1":   billplz.DefaultBankCode,
		"reference_2":   f.order.OrderNumber,
	}
	if paid {
		p["paid"] = "true"
		p["state"] = "paid"
		p["paid_at"] = "2025-01-01 10:05:00 +0800"
		p["transaction_id"] = "TX123"
	}
	return p
}

func (f *paymentFixture) currentOrder(t *testing.T) model.Order {
	t.Helper()
	orders := f.store.AllOrders()
	require.Len(t, orders, 1)
	return orders[0]
}

func signed(p map[string]string) string {
	return billplz.Sign(testSignatureKey, p)
}

// =====================
// HandleCallback tests
// =====================

func TestPaymentUsecase_HandleCallback_Paid(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	p := f.payload(true)

	res, err := f.pay.HandleCallback(context.Background(), p, signed(p))
	require.NoError(t, err)
	assert.False(t, res.AlreadyProcessed)
	assert.Equal(t, model.PaymentStatusPaid, res.PaymentStatus)
	assert.Equal(t, f.order.OrderNumber, res.OrderNumber)

	o := f.currentOrder(t)
	assert.Equal(t, model.PaymentStatusPaid, o.PaymentStatus)
	assert.Equal(t, model.OrderStatusProcessing, o.Status)
	require.NotNil(t, o.PaidAt)
	assert.True(t, o.PaidAt.Equal(time.Date(2025, 1, 1, 2, 5, 0, 0, time.UTC)))
	require.Len(t, o.PaymentMetadata.Events, 1)
	assert.Equal(t, model.PaymentEventCallback, o.PaymentMetadata.Events[0].Source)
	assert.NotContains(t, o.PaymentMetadata.Events[0].Raw, "x_signature")
	//請求書作成時の情報は残る
	assert.Equal(t, "W_79pJDk", o.PaymentMetadata.Bill["id"])

	logs := f.store.AllAuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionPaymentPaid, logs[0].Action)
	assert.Equal(t, "callback", logs[0].Actor)
	assert.Contains(t, logs[0].BeforeJSON, `"payment_status":"pending"`)
	assert.Contains(t, logs[0].AfterJSON, `"payment_status":"paid"`)

	assert.Equal(t, int64(8), f.store.Stock(f.product.ID))
	f.events.AssertCalled(t, "Publish", mock.Anything, events.EventOrderPaid, f.order.OrderNumber, mock.Anything)
}

// 同じpaidが2回来ても遷移は1回、在庫も変わらない
func TestPaymentUsecase_HandleCallback_PaidTwice_Idempotent(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	p := f.payload(true)

	_, err := f.pay.HandleCallback(context.Background(), p, signed(p))
	require.NoError(t, err)
	res, err := f.pay.HandleCallback(context.Background(), p, signed(p))
	require.NoError(t, err)

	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, model.PaymentStatusPaid, res.PaymentStatus)
	assert.Len(t, f.store.AllAuditLogs(), 1)
	assert.Len(t, f.currentOrder(t).PaymentMetadata.Events, 1)
	assert.Equal(t, int64(8), f.store.Stock(f.product.ID))

	paidEvents := 0
	for _, c := range f.events.Calls {
		if c.Method == "Publish" && c.Arguments.String(1) == events.EventOrderPaid {
			paidEvents++
		}
	}
	assert.Equal(t, 1, paidEvents)
}

func TestPaymentUsecase_HandleCallback_Failed_RestoresStock(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	p := f.payload(false)

	res, err := f.pay.HandleCallback(context.Background(), p, signed(p))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, res.PaymentStatus)

	o := f.currentOrder(t)
	assert.Equal(t, model.PaymentStatusFailed, o.PaymentStatus)
	assert.Equal(t, model.OrderStatusCancelled, o.Status)
	assert.Nil(t, o.PaidAt)

	//チェックアウト前の在庫に戻る
	assert.Equal(t, int64(10), f.store.Stock(f.product.ID))

	moves := f.store.AllMovements()
	require.Len(t, moves, 2)
	assert.Equal(t, model.StockReasonPaymentFailed, moves[1].Reason)
	assert.Equal(t, int64(2), moves[1].Delta)

	logs := f.store.AllAuditLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionPaymentFailed, logs[0].Action)

	f.events.AssertCalled(t, "Publish", mock.Anything, events.EventOrderPaymentFailed, f.order.OrderNumber,
		mock.MatchedBy(func(pl events.OrderPaymentFailedPayload) bool {
			return len(pl.Restocked) == 1 && pl.Restocked[0].Quantity == 2
		}))
}

// 失敗が2回来ても在庫は1回だけ戻す
func TestPaymentUsecase_HandleCallback_FailedTwice_RestoresOnce(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	p := f.payload(false)

	_, err := f.pay.HandleCallback(context.Background(), p, signed(p))
	require.NoError(t, err)
	res, err := f.pay.HandleCallback(context.Background(), p, signed(p))
	require.NoError(t, err)

	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, int64(10), f.store.Stock(f.product.ID))
	assert.Len(t, f.store.AllMovements(), 2)
	assert.Len(t, f.store.AllAuditLogs(), 1)
}

// 失敗済みの注文はpaidが来ても戻さない
func TestPaymentUsecase_HandleCallback_PaidAfterFailed_NotResurrected(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	failed := f.payload(false)
	_, err := f.pay.HandleCallback(context.Background(), failed, signed(failed))
	require.NoError(t, err)

	paid := f.payload(true)
	res, err := f.pay.HandleCallback(context.Background(), paid, signed(paid))
	require.NoError(t, err)

	assert.True(t, res.AlreadyProcessed)
	assert.Equal(t, model.PaymentStatusFailed, res.PaymentStatus)
	assert.Equal(t, model.PaymentStatusFailed, f.currentOrder(t).PaymentStatus)
	assert.Equal(t, int64(10), f.store.Stock(f.product.ID))
}

func TestPaymentUsecase_HandleCallback_InvalidSignature(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	p := f.payload(true)
	sig := signed(p)
	p["amount"] = "1" // 改ざん

	_, err := f.pay.HandleCallback(context.Background(), p, sig)
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "invalid signature", he.Message)

	assert.Equal(t, model.PaymentStatusPending, f.currentOrder(t).PaymentStatus)
	assert.Empty(t, f.store.AllAuditLogs())
}

// 署名が無いときは検証しない（キーがあっても）
func TestPaymentUsecase_HandleCallback_NoSignature_Processed(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)

	res, err := f.pay.HandleCallback(context.Background(), f.payload(true), "")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, res.PaymentStatus)
}

func TestPaymentUsecase_HandleCallback_NoKey_SkipsVerification(t *testing.T) {
	f := newPaymentFixture(t, "")

	res, err := f.pay.HandleCallback(context.Background(), f.payload(true), "garbage")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPaid, res.PaymentStatus)
}

func TestPaymentUsecase_HandleCallback_OrderNotFound(t *testing.T) {
	f := newPaymentFixture(t, "")
	p := f.payload(true)
	p["id"] = "unknown"
	p["reference_2"] = "ORD-20990101-001"

	_, err := f.pay.HandleCallback(context.Background(), p, "")
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
	assert.Equal(t, model.PaymentStatusPending, f.currentOrder(t).PaymentStatus)
}

// reference_2が無くてもbill idで見つける
func TestPaymentUsecase_HandleCallback_FallbackToBillID(t *testing.T) {
	f := newPaymentFixture(t, "")
	p := f.payload(true)
	delete(p, "reference_2")

	res, err := f.pay.HandleCallback(context.Background(), p, "")
	require.NoError(t, err)
	assert.Equal(t, f.order.OrderNumber, res.OrderNumber)
	assert.Equal(t, model.PaymentStatusPaid, res.PaymentStatus)
}

func TestPaymentUsecase_HandleCallback_MissingID(t *testing.T) {
	f := newPaymentFixture(t, "")

	_, err := f.pay.HandleCallback(context.Background(), map[string]string{"paid": "true"}, "")
	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, he.Status)
}

// =====================
// HandleRedirect tests
// =====================

func TestPaymentUsecase_HandleRedirect_PaidSigned(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	p := f.payload(true)
	p["x_signature"] = signed(p)

	loc := f.pay.HandleRedirect(context.Background(), p)
	assert.Equal(t, successURL+"/"+f.order.OrderNumber+"?payment=success", loc)

	o := f.currentOrder(t)
	assert.Equal(t, model.PaymentStatusPaid, o.PaymentStatus)
	require.Len(t, o.PaymentMetadata.Events, 1)
	assert.Equal(t, model.PaymentEventRedirect, o.PaymentMetadata.Events[0].Source)
	assert.Equal(t, "redirect", f.store.AllAuditLogs()[0].Actor)
}

// 署名が通らないリダイレクトは状態を変えない
func TestPaymentUsecase_HandleRedirect_BadSignature_NoStateChange(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	p := f.payload(true)
	p["x_signature"] = "deadbeef"
	f.gateway.On("GetBill", mock.Anything, f.order.BillID).
		Return(billplz.Bill{ID: f.order.BillID, State: "due", Paid: false}, nil)

	loc := f.pay.HandleRedirect(context.Background(), p)
	assert.Equal(t, successURL+"/"+f.order.OrderNumber+"?payment=failed", loc)
	assert.Equal(t, model.PaymentStatusPending, f.currentOrder(t).PaymentStatus)
	assert.Empty(t, f.store.AllAuditLogs())
}

// 署名が通らなくても請求書APIがpaidなら反映する
func TestPaymentUsecase_HandleRedirect_BadSignature_ConfirmedByBill(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	p := f.payload(true)
	p["x_signature"] = "deadbeef"
	f.gateway.On("GetBill", mock.Anything, f.order.BillID).
		Return(billplz.Bill{ID: f.order.BillID, State: "paid", Paid: true, Amount: decimal.NewFromInt(180)}, nil)

	loc := f.pay.HandleRedirect(context.Background(), p)
	assert.Equal(t, successURL+"/"+f.order.OrderNumber+"?payment=success", loc)

	o := f.currentOrder(t)
	assert.Equal(t, model.PaymentStatusPaid, o.PaymentStatus)
	require.Len(t, o.PaymentMetadata.Events, 1)
	assert.Equal(t, model.PaymentEventRedirect, o.PaymentMetadata.Events[0].Source)
	assert.True(t, decimal.NewFromInt(180).Equal(o.PaymentMetadata.Events[0].Amount))
}

// 請求書APIが失敗したら状態は変えない
func TestPaymentUsecase_HandleRedirect_BadSignature_ConfirmFails(t *testing.T) {
	f := newPaymentFixture(t, testSignatureKey)
	p := f.payload(true)
	p["x_signature"] = "deadbeef"
	f.gateway.On("GetBill", mock.Anything, f.order.BillID).
		Return(billplz.Bill{}, &billplz.GatewayError{Op: "get_bill", StatusCode: 500})

	loc := f.pay.HandleRedirect(context.Background(), p)
	assert.Equal(t, successURL+"/"+f.order.OrderNumber+"?payment=failed", loc)
	assert.Equal(t, model.PaymentStatusPending, f.currentOrder(t).PaymentStatus)
}

// リダイレクトはreference_2では注文を引かない
func TestPaymentUsecase_HandleRedirect_IgnoresOrderNumberParam(t *testing.T) {
	f := newPaymentFixture(t, "")
	p := f.payload(true)
	p["id"] = "someone-elses-bill"

	loc := f.pay.HandleRedirect(context.Background(), p)
	assert.Equal(t, errorURL+"?type=order_not_found", loc)
	assert.Equal(t, model.PaymentStatusPending, f.currentOrder(t).PaymentStatus)
}

// 未払いのリダイレクトでは在庫を戻さない（callbackに任せる）
func TestPaymentUsecase_HandleRedirect_Unpaid_NoRestock(t *testing.T) {
	f := newPaymentFixture(t, "")

	loc := f.pay.HandleRedirect(context.Background(), f.payload(false))
	assert.Equal(t, successURL+"/"+f.order.OrderNumber+"?payment=failed", loc)
	assert.Equal(t, model.PaymentStatusPending, f.currentOrder(t).PaymentStatus)
	assert.Equal(t, int64(8), f.store.Stock(f.product.ID))
}

func TestPaymentUsecase_HandleRedirect_AfterCallback(t *testing.T) {
	f := newPaymentFixture(t, "")
	p := f.payload(true)
	_, err := f.pay.HandleCallback(context.Background(), p, "")
	require.NoError(t, err)

	loc := f.pay.HandleRedirect(context.Background(), p)
	assert.Equal(t, successURL+"/"+f.order.OrderNumber+"?payment=success", loc)
	assert.Len(t, f.store.AllAuditLogs(), 1)
}

func TestPaymentUsecase_HandleRedirect_OrderNotFound(t *testing.T) {
	f := newPaymentFixture(t, "")

	loc := f.pay.HandleRedirect(context.Background(), map[string]string{"id": "nope", "paid": "true"})
	assert.Equal(t, errorURL+"?type=order_not_found", loc)

	loc = f.pay.HandleRedirect(context.Background(), map[string]string{})
	assert.Equal(t, errorURL+"?type=order_not_found", loc)
}

// =====================
// DB errors
// =====================

// DBエラーは500で返し、原因をログに残す。状態は変わらない
func TestPaymentUsecase_HandleCallback_DBError_Logged(t *testing.T) {
	f := newPaymentFixture(t, "")
	logger, buf := bufferLogger()
	pay := usecase.NewPaymentUsecase(
		brokenTx{store: f.store, err: errors.New("connection reset by peer")},
		f.gateway, f.events, f.clock, logger, successURL, errorURL,
	)

	_, err := pay.HandleCallback(context.Background(), f.payload(false), "")

	he, ok := usecase.AsHTTPError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, he.Status)
	assert.NotContains(t, he.Message, "connection reset")
	assert.Contains(t, buf.String(), "billplz reconcile failed")
	assert.Contains(t, buf.String(), "connection reset by peer")

	o := f.currentOrder(t)
	assert.Equal(t, model.PaymentStatusPending, o.PaymentStatus)
	assert.Equal(t, int64(8), f.store.Stock(f.product.ID))
	assert.Empty(t, f.store.AllAuditLogs())
}

func TestPaymentUsecase_HandleRedirect_DBError_SystemError(t *testing.T) {
	f := newPaymentFixture(t, "")
	logger, buf := bufferLogger()
	pay := usecase.NewPaymentUsecase(
		brokenTx{store: f.store, err: errors.New("connection reset by peer")},
		f.gateway, f.events, f.clock, logger, successURL, errorURL,
	)

	loc := pay.HandleRedirect(context.Background(), f.payload(true))
	assert.Equal(t, errorURL+"?type=system_error", loc)
	assert.Contains(t, buf.String(), "connection reset by peer")
}
