package usecase_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"shopbot/internal/domain/model"
	"shopbot/internal/infra/billplz"
	"shopbot/internal/repository"
	"shopbot/internal/repository/memstore"

	"github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Gateway / Publisher mocks
// =====================

// GatewayMock はCreateBill/GetBillだけmock。署名はKeyを使って本物で検証する
type GatewayMock struct {
	mock.Mock
	Key string
}

func (m *GatewayMock) CreateBill(ctx context.Context, in billplz.CreateBillInput) (billplz.Bill, error) {
	args := m.Called(ctx, in)
	b, _ := args.Get(0).(billplz.Bill)
	return b, args.Error(1)
}

func (m *GatewayMock) GetBill(ctx context.Context, billID string) (billplz.Bill, error) {
	args := m.Called(ctx, billID)
	b, _ := args.Get(0).(billplz.Bill)
	return b, args.Error(1)
}

func (m *GatewayMock) SignatureEnabled() bool { return m.Key != "" }

func (m *GatewayMock) VerifySignature(payload map[string]string, signature string) bool {
	return billplz.VerifySignature(m.Key, payload, signature)
}

type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, eventType string, key string, payload any) error {
	args := m.Called(ctx, eventType, key, payload)
	return args.Error(0)
}

type ForwarderMock struct {
	mock.Mock
}

func (m *ForwarderMock) ForwardAIMessage(ctx context.Context, phoneNumber string, message string) error {
	args := m.Called(ctx, phoneNumber, message)
	return args.Error(0)
}

// =====================
// Clock / IDGenerator
// =====================

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (g *seqIDs) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("idem-%d", g.n)
}

// =====================
// Helper
// =====================

func assertErrContains(t *testing.T, err error, wantSubstr string) {
	t.Helper()
	if assert.Error(t, err) {
		assert.True(t, strings.Contains(err.Error(), wantSubstr), "err=%q want contains %q", err.Error(), wantSubstr)
	}
}

func testLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

// ログの中身を見たいテスト用
func bufferLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := log.New("test")
	l.SetOutput(&buf)
	return l, &buf
}

func klTime(t *testing.T, y int, m time.Month, d, h, min int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kuala_Lumpur")
	if err != nil {
		t.Fatal(err)
	}
	return time.Date(y, m, d, h, min, 0, 0, loc)
}

func seedTudung(s *memstore.Store, stock int64) model.Product {
	return s.SeedProduct(model.Product{
		Name:        "Tudung Bawal",
		Price:       decimal.NewFromInt(100),
		NormalPrice: decimal.NewFromInt(120),
		Stock:       stock,
		IsActive:    true,
	})
}

// =====================
// 壊れたDB（memstoreの上で一部の更新だけ失敗させる）
// =====================

type brokenTx struct {
	store *memstore.Store
	err   error
}

func (b brokenTx) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) error {
	return b.store.WithinTx(ctx, func(r repository.TxRepos) error {
		return fn(brokenRepos{TxRepos: r, err: b.err})
	})
}

type brokenRepos struct {
	repository.TxRepos
	err error
}

func (r brokenRepos) Orders() repository.OrderRepository {
	return brokenOrders{OrderRepository: r.TxRepos.Orders(), err: r.err}
}

type brokenOrders struct {
	repository.OrderRepository
	err error
}

func (o brokenOrders) NextSequence(ctx context.Context, day string) (int64, error) {
	return 0, o.err
}

func (o brokenOrders) TransitionPayment(ctx context.Context, t repository.PaymentTransition) (bool, error) {
	return false, o.err
}
