package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderPaid          = "OrderPaid"
	EventOrderPaymentFailed = "OrderPaymentFailed"
)

const (
	envelopeVersion = 1
	producerName    = "shopbot-api"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_number
	Payload       json.RawMessage `json:"payload"`
}

func NewEnvelope(eventType string, correlationID string, payload any, now time.Time) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    now.UTC(),
		Producer:      producerName,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

// ---- payload ----

type OrderCreatedPayload struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	ProductID   int64  `json:"product_id"`
	Quantity    int64  `json:"quantity"`
	TotalAmount string `json:"total_amount"`
	BillID      string `json:"bill_id,omitempty"` // COD/店頭は空
}

type OrderPaidPayload struct {
	OrderID     int64     `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	BillID      string    `json:"bill_id"`
	Amount      string    `json:"amount"`
	PaidAt      time.Time `json:"paid_at"`
	Source      string    `json:"source"` // callback | redirect
}

type RestockedItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type OrderPaymentFailedPayload struct {
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	BillID      string          `json:"bill_id"`
	State       string          `json:"state"`
	Restocked   []RestockedItem `json:"restocked"`
}
