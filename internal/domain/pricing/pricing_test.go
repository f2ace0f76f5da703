package pricing

import (
	"testing"

	"shopbot/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculate_Table(t *testing.T) {
	cases := []struct {
		name     string
		delivery model.DeliveryMethod
		payment  model.PaymentMethod
		subtotal string
		wantDD   string
		wantPD   string
		wantTot  string
	}{
		{"postage+full", model.DeliveryPostage, model.PaymentFull, "200", "10", "10", "180"},
		{"cod+booking", model.DeliveryCOD, model.PaymentBooking, "200", "0", "0", "200"},
		{"walkin+walkin", model.DeliveryWalkIn, model.PaymentWalkIn, "200", "20", "6", "174"},
		{"cod+full", model.DeliveryCOD, model.PaymentFull, "99.90", "0", "5", "94.90"},
		{"unknown keys", model.DeliveryMethod("drone"), model.PaymentMethod("crypto"), "150", "0", "0", "150"},
		{"rounding to sen", model.DeliveryPostage, model.PaymentWalkIn, "33.33", "1.67", "1", "30.66"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := Calculate(tc.delivery, tc.payment, dec(tc.subtotal))

			assert.True(t, dec(tc.wantDD).Equal(q.DeliveryDiscount), "delivery discount=%s", q.DeliveryDiscount)
			assert.True(t, dec(tc.wantPD).Equal(q.PaymentDiscount), "payment discount=%s", q.PaymentDiscount)
			assert.True(t, dec(tc.wantTot).Equal(q.TotalAmount), "total=%s", q.TotalAmount)
		})
	}
}

func TestCalculate_TotalInvariant(t *testing.T) {
	deliveries := []model.DeliveryMethod{model.DeliveryCOD, model.DeliveryPostage, model.DeliveryWalkIn}
	payments := []model.PaymentMethod{model.PaymentFull, model.PaymentBooking, model.PaymentWalkIn}
	subtotals := []string{"0", "0.01", "1.99", "12.345", "1000", "2499.95"}

	for _, d := range deliveries {
		for _, p := range payments {
			for _, s := range subtotals {
				q := Calculate(d, p, dec(s))
				want := q.Subtotal.Sub(q.DeliveryDiscount).Sub(q.PaymentDiscount)
				assert.True(t, want.Equal(q.TotalAmount), "%s/%s/%s", d, p, s)
				assert.False(t, q.TotalAmount.IsNegative())
			}
		}
	}
}

func TestSubtotal(t *testing.T) {
	assert.True(t, dec("299.97").Equal(Subtotal(dec("99.99"), 3)))
	assert.True(t, decimal.Zero.Equal(Subtotal(dec("10"), 0)))
}
