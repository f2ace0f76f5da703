// Package pricing は配送方法/支払い方法ごとの割引を計算する。副作用なし。
package pricing

import (
	"shopbot/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 配送方法ごとの割引率(%)
var deliveryDiscountPercent = map[model.DeliveryMethod]int64{
	model.DeliveryCOD:     0,
	model.DeliveryPostage: 5,
	model.DeliveryWalkIn:  10,
}

// 支払い方法ごとの割引率(%)
var paymentDiscountPercent = map[model.PaymentMethod]int64{
	model.PaymentFull:    5,
	model.PaymentBooking: 0,
	model.PaymentWalkIn:  3,
}

var hundred = decimal.NewFromInt(100)

type Quote struct {
	Subtotal         decimal.Decimal
	DeliveryDiscount decimal.Decimal
	PaymentDiscount  decimal.Decimal
	TotalAmount      decimal.Decimal
}

// 単価 × 数量
func Subtotal(unitPrice decimal.Decimal, quantity int64) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// 知らないキーは0%（エラーにしない）
func DeliveryDiscountPercent(m model.DeliveryMethod) int64 {
	return deliveryDiscountPercent[m]
}

func PaymentDiscountPercent(m model.PaymentMethod) int64 {
	return paymentDiscountPercent[m]
}

// 割引はsen単位に丸める。totalは丸めた後の値から引くので必ず
// total == subtotal - delivery_discount - payment_discount になる
func Calculate(delivery model.DeliveryMethod, payment model.PaymentMethod, subtotal decimal.Decimal) Quote {
	dd := percentOf(subtotal, DeliveryDiscountPercent(delivery))
	pd := percentOf(subtotal, PaymentDiscountPercent(payment))

	return Quote{
		Subtotal:         subtotal,
		DeliveryDiscount: dd,
		PaymentDiscount:  pd,
		TotalAmount:      subtotal.Sub(dd).Sub(pd),
	}
}

func percentOf(amount decimal.Decimal, percent int64) decimal.Decimal {
	if percent == 0 {
		return decimal.Zero
	}
	return amount.Mul(decimal.NewFromInt(percent)).Div(hundred).Round(2)
}
