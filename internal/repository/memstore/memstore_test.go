package memstore

import (
	"context"
	"errors"
	"testing"

	"shopbot/internal/domain/model"
	"shopbot/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinTx_RollbackOnError(t *testing.T) {
	s := New()
	p := s.SeedProduct(model.Product{Name: "Tudung", Price: decimal.NewFromInt(50), Stock: 5, IsActive: true})

	boom := errors.New("boom")
	err := s.WithinTx(context.Background(), func(r repository.TxRepos) error {
		ok, err := r.Inventory().DecreaseStockIfEnough(context.Background(), p.ID, 2)
		require.NoError(t, err)
		require.True(t, ok)

		_, err = r.Orders().Create(context.Background(), model.Order{OrderNumber: "ORD-20250101-001", IdempotencyKey: "k1"})
		require.NoError(t, err)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(5), s.Stock(p.ID))
	assert.Empty(t, s.AllOrders())
}

func TestStore_WithinTx_RollbackOnPanic(t *testing.T) {
	s := New()
	p := s.SeedProduct(model.Product{Name: "Tudung", Stock: 5})

	assert.Panics(t, func() {
		_ = s.WithinTx(context.Background(), func(r repository.TxRepos) error {
			_, _ = r.Inventory().DecreaseStockIfEnough(context.Background(), p.ID, 5)
			panic("boom")
		})
	})
	assert.Equal(t, int64(5), s.Stock(p.ID))
}

func TestStore_DecreaseStockIfEnough_NotEnough(t *testing.T) {
	s := New()
	p := s.SeedProduct(model.Product{Name: "Tudung", Stock: 3})

	ok, err := s.Inventory().DecreaseStockIfEnough(context.Background(), p.ID, 5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, int64(3), s.Stock(p.ID))
}

func TestStore_CreateMovement_Duplicate(t *testing.T) {
	s := New()
	m := model.StockMovement{OrderID: 1, ProductID: 2, Delta: 1, Reason: model.StockReasonPaymentFailed}

	ok, err := s.Inventory().CreateMovement(context.Background(), m)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Inventory().CreateMovement(context.Background(), m)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, s.AllMovements(), 1)
}

func TestStore_TransitionPayment_OnlyFromExpected(t *testing.T) {
	s := New()
	o, err := s.Orders().Create(context.Background(), model.Order{
		OrderNumber: "ORD-20250101-001", IdempotencyKey: "k1", PaymentStatus: model.PaymentStatusPending,
	})
	require.NoError(t, err)

	tr := repository.PaymentTransition{
		OrderID: o.ID, From: model.PaymentStatusPending, To: model.PaymentStatusFailed, Status: model.OrderStatusCancelled,
	}
	ok, err := s.Orders().TransitionPayment(context.Background(), tr)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Orders().TransitionPayment(context.Background(), tr)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_FindForReconcile_BillIDFallback(t *testing.T) {
	s := New()
	o, err := s.Orders().Create(context.Background(), model.Order{OrderNumber: "ORD-20250101-001", IdempotencyKey: "k1"})
	require.NoError(t, err)
	require.NoError(t, s.Orders().AttachBill(context.Background(), o.ID, repository.BillAttachment{BillID: "abc123", CollectionID: "col"}))

	got, err := s.Orders().FindForReconcile(context.Background(), "ORD-UNKNOWN", "abc123")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	_, err = s.Orders().FindForReconcile(context.Background(), "", "")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
