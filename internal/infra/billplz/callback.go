package billplz

import (
	"errors"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrMissingBillID = errors.New("billplz: callback without id")

// コールバック/リダイレクトの共通形
type Callback struct {
	BillID        string
	CollectionID  string
	Paid          bool
	State         string
	Amount        decimal.Decimal
	PaidAt        *string
	TransactionID *string
	OrderNumber   string
}

// idが無いときだけエラー。他は無ければゼロ値
func ParseCallback(payload map[string]string) (Callback, error) {
	id := strings.TrimSpace(payload["id"])
	if id == "" {
		return Callback{}, ErrMissingBillID
	}

	state := payload["state"]
	if state == "" {
		state = "due"
	}

	return Callback{
		BillID:        id,
		CollectionID:  payload["collection_id"],
		Paid:          parseBool(payload["paid"]),
		State:         state,
		Amount:        FromMinorUnits(payload["amount"]),
		PaidAt:        optional(payload, "paid_at"),
		TransactionID: optional(payload, "transaction_id"),
		OrderNumber:   payload["reference_2"],
	}, nil
}

// フォーム値を1キー1値にする
func FormValues(v url.Values) map[string]string {
	out := make(map[string]string, len(v))
	for k, vals := range v {
		if len(vals) > 0 {
			out[k] = vals[0]
		}
	}
	return out
}

// billplz[id]=... → id=...。それ以外のキーはそのまま
func FlattenRedirectParams(q url.Values) map[string]string {
	out := make(map[string]string, len(q))
	for k, vals := range q {
		if len(vals) == 0 {
			continue
		}
		if strings.HasPrefix(k, "billplz[") && strings.HasSuffix(k, "]") {
			out[k[len("billplz["):len(k)-1]] = vals[0]
			continue
		}
		if _, ok := out[k]; !ok {
			out[k] = vals[0]
		}
	}
	return out
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

func optional(payload map[string]string, key string) *string {
	v, ok := payload[key]
	if !ok || v == "" {
		return nil
	}
	return &v
}
