package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// 決済ステータスの遷移表。paid/failedはwebhookでは戻せない
var paymentNext = map[PaymentStatus]map[PaymentStatus]bool{
	PaymentStatusPending:  {PaymentStatusPaid: true, PaymentStatusFailed: true},
	PaymentStatusPaid:     {PaymentStatusRefunded: true},
	PaymentStatusFailed:   {},
	PaymentStatusRefunded: {},
}

func CanTransitionPayment(from, to PaymentStatus) bool {
	return paymentNext[from][to]
}

type DeliveryMethod string

const (
	DeliveryCOD     DeliveryMethod = "cod"
	DeliveryPostage DeliveryMethod = "postage"
	DeliveryWalkIn  DeliveryMethod = "walkin"
)

type PaymentMethod string

const (
	PaymentFull    PaymentMethod = "full"
	PaymentBooking PaymentMethod = "booking"
	PaymentWalkIn  PaymentMethod = "walkin"
)

type Order struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`

	CustomerName  string `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerPhone string `gorm:"type:varchar(20);not null" json:"customer_phone"`
	CustomerEmail string `gorm:"type:varchar(255);not null;index" json:"customer_email"`

	//配送先（postageのときだけ使う）
	AddressLine1 string `gorm:"type:varchar(255)" json:"address_line1,omitempty"`
	AddressLine2 string `gorm:"type:varchar(255)" json:"address_line2,omitempty"`
	City         string `gorm:"type:varchar(100)" json:"city,omitempty"`
	State        string `gorm:"type:varchar(100)" json:"state,omitempty"`
	Postcode     string `gorm:"type:varchar(10)" json:"postcode,omitempty"`
	Notes        string `gorm:"type:text" json:"notes,omitempty"`

	DeliveryMethod   DeliveryMethod  `gorm:"type:varchar(20);not null" json:"delivery_method"`
	PaymentMethod    PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DeliveryDiscount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"delivery_discount"`
	PaymentDiscount  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"payment_discount"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`

	Status        OrderStatus   `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`

	BillplzBillID       *string         `gorm:"type:varchar(64);index" json:"billplz_bill_id,omitempty"`
	BillplzCollectionID *string         `gorm:"type:varchar(64)" json:"billplz_collection_id,omitempty"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	ReconciledAt        *time.Time      `json:"-"`
	IdempotencyKey      string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	PaymentMetadata     PaymentMetadata `gorm:"type:jsonb" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// total = subtotal - delivery_discount - payment_discount
func (o Order) ExpectedTotal() decimal.Decimal {
	return o.Subtotal.Sub(o.DeliveryDiscount).Sub(o.PaymentDiscount)
}

// ORD-YYYYMMDD-001 形式。seqは日ごとに1から
func FormatOrderNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%03d", day.Format("20060102"), seq)
}

// payment_metadataの中身。eventsは追記のみ
type PaymentMetadata struct {
	Bill   map[string]any `json:"bill,omitempty"`
	Events []PaymentEvent `json:"events,omitempty"`
}

type PaymentEventSource string

const (
	PaymentEventCallback PaymentEventSource = "callback"
	PaymentEventRedirect PaymentEventSource = "redirect"
)

type PaymentEvent struct {
	Source        PaymentEventSource `json:"source"`
	ReceivedAt    time.Time          `json:"received_at"`
	BillID        string             `json:"bill_id"`
	Paid          bool               `json:"paid"`
	State         string             `json:"state"`
	Amount        decimal.Decimal    `json:"amount"`
	PaidAt        *string            `json:"paid_at,omitempty"`
	TransactionID *string            `json:"transaction_id,omitempty"`
	Raw           map[string]string  `json:"raw,omitempty"`
}

func (m PaymentMetadata) Append(ev PaymentEvent) PaymentMetadata {
	events := make([]PaymentEvent, 0, len(m.Events)+1)
	events = append(events, m.Events...)
	events = append(events, ev)
	return PaymentMetadata{Bill: m.Bill, Events: events}
}

func (m PaymentMetadata) Value() (driver.Value, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *PaymentMetadata) Scan(src any) error {
	var b []byte
	switch v := src.(type) {
	case nil:
		*m = PaymentMetadata{}
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return errors.New("payment_metadata: unsupported type")
	}
	if len(b) == 0 {
		*m = PaymentMetadata{}
		return nil
	}
	return json.Unmarshal(b, m)
}
