// Package billplz はBillplz v3 APIとのやりとり（請求書作成/取得、コールバックの解析と署名検証）をまとめる。
package billplz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
)

// reference_1 の既定値（Visa/Mastercard）
const DefaultBankCode = "BP-BILLPLZ1"

type Config struct {
	BaseURL       string
	APIKey        string
	CollectionID  string
	XSignatureKey string
	CallbackURL   string
	RedirectURL   string
	Timeout       time.Duration
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger echo.Logger
}

// hcがnilならcfg.Timeoutを持つクライアントを作る
func NewClient(cfg Config, hc *http.Client, logger echo.Logger) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: hc, logger: logger}
}

type CreateBillInput struct {
	OrderNumber string
	Name        string
	Email       string
	Mobile      string
	Amount      decimal.Decimal
	BankCode    string
}

type Bill struct {
	ID           string
	CollectionID string
	URL          string
	State        string
	Paid         bool
	Amount       decimal.Decimal
	Raw          map[string]any
}

// 外部APIの失敗（非2xx / 応答が壊れている / 通信エラー）
type GatewayError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("billplz %s: %v", e.Op, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("billplz %s: status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("billplz %s: %s", e.Op, e.Body)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

// POST /v3/bills。失敗してもリトライしない（二重請求になるため）
func (c *Client) CreateBill(ctx context.Context, in CreateBillInput) (Bill, error) {
	bankCode := in.BankCode
	if bankCode == "" {
		bankCode = DefaultBankCode
	}

	body := map[string]any{
		"collection_id":     c.cfg.CollectionID,
		"email":             in.Email,
		"mobile":            NormalizeMobile(in.Mobile),
		"name":              in.Name,
		"amount":            ToMinorUnits(in.Amount),
		"description":       "Order #" + in.OrderNumber,
		"callback_url":      c.cfg.CallbackURL,
		"redirect_url":      c.cfg.RedirectURL,
		"reference_1_label": "Bank Code",
		"reference_1":       bankCode,
		"reference_2_label": "Order ID",
		"reference_2":       in.OrderNumber,
	}

	raw, err := c.do(ctx, "create_bill", http.MethodPost, "/v3/bills", body)
	if err != nil {
		return Bill{}, err
	}

	bill, err := billFromResponse("create_bill", raw)
	if err != nil {
		c.logger.Errorj(log.JSON{"msg": "billplz create bill: invalid response", "order_number": in.OrderNumber})
		return Bill{}, err
	}

	//直接決済ページへ飛ばす
	bill.URL = bill.URL + "?auto_submit=true"
	return bill, nil
}

// GET /v3/bills/{id}。リダイレクトの支払い結果を確かめるのに使う
func (c *Client) GetBill(ctx context.Context, billID string) (Bill, error) {
	raw, err := c.do(ctx, "get_bill", http.MethodGet, "/v3/bills/"+billID, nil)
	if err != nil {
		return Bill{}, err
	}
	return billFromResponse("get_bill", raw)
}

func (c *Client) SignatureEnabled() bool {
	return c.cfg.XSignatureKey != ""
}

func (c *Client) VerifySignature(payload map[string]string, signature string) bool {
	return VerifySignature(c.cfg.XSignatureKey, payload, signature)
}

func (c *Client) do(ctx context.Context, op, method, path string, body any) (map[string]any, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &GatewayError{Op: op, Err: err}
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, reader)
	if err != nil {
		return nil, &GatewayError{Op: op, Err: err}
	}
	req.SetBasicAuth(c.cfg.APIKey, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		c.logger.Errorj(log.JSON{"msg": "billplz request failed", "endpoint": path, "error": err.Error()})
		return nil, &GatewayError{Op: op, Err: err}
	}
	defer res.Body.Close()

	resBody, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, &GatewayError{Op: op, StatusCode: res.StatusCode, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.logger.Errorj(log.JSON{"msg": "billplz api error", "endpoint": path, "status": res.StatusCode, "body": string(resBody)})
		return nil, &GatewayError{Op: op, StatusCode: res.StatusCode, Body: string(resBody)}
	}

	var out map[string]any
	if err := json.Unmarshal(resBody, &out); err != nil {
		return nil, &GatewayError{Op: op, StatusCode: res.StatusCode, Body: string(resBody), Err: err}
	}
	return out, nil
}

// id と url が無い応答は失敗扱い
func billFromResponse(op string, raw map[string]any) (Bill, error) {
	id, _ := raw["id"].(string)
	url, _ := raw["url"].(string)
	if id == "" || url == "" {
		return Bill{}, &GatewayError{Op: op, Body: "invalid response: missing id or url"}
	}

	collectionID, _ := raw["collection_id"].(string)
	state, _ := raw["state"].(string)
	paid, _ := raw["paid"].(bool)
	amount, _ := raw["amount"].(float64) // sen

	return Bill{
		ID:           id,
		CollectionID: collectionID,
		URL:          url,
		State:        state,
		Paid:         paid,
		Amount:       decimal.NewFromFloat(amount).Div(hundred),
		Raw:          raw,
	}, nil
}

// マレーシアのローカル形式（0から始まる）にそろえる
func NormalizeMobile(phone string) string {
	phone = strings.NewReplacer(" ", "", "-", "", "+", "", "\t", "").Replace(phone)
	if strings.HasPrefix(phone, "60") {
		phone = "0" + phone[2:]
	}
	if !strings.HasPrefix(phone, "0") {
		phone = "0" + phone
	}
	return phone
}

var hundred = decimal.NewFromInt(100)

// RM → sen
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// sen → RM。数値でなければ0
func FromMinorUnits(v string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero
	}
	return d.Div(hundred)
}
