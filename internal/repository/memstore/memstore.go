// Package memstore はrepositoryの全インターフェースをメモリ上で実装する。
// usecase/handlerのテストでDB無しに使う。WithinTxは直列化され、エラー時はスナップショットに戻す。
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"shopbot/internal/domain/model"
	"shopbot/internal/repository"
)

type state struct {
	seq         int64
	products    map[int64]model.Product
	orders      map[int64]model.Order
	orderItems  map[int64]model.OrderItem
	movements   []model.StockMovement
	sequences   map[string]int64
	auditLogs   []model.AuditLog
	customers   map[int64]model.Customer
	messageLogs []model.MessageLog
	activations map[string]model.AIActivation
	ecommerce   *model.EcommerceSetting
}

func newState() *state {
	return &state{
		products:    map[int64]model.Product{},
		orders:      map[int64]model.Order{},
		orderItems:  map[int64]model.OrderItem{},
		sequences:   map[string]int64{},
		customers:   map[int64]model.Customer{},
		activations: map[string]model.AIActivation{},
	}
}

// 値型しか持たないのでmapとsliceを作り直せば十分
func (s *state) clone() *state {
	c := &state{
		seq:         s.seq,
		products:    make(map[int64]model.Product, len(s.products)),
		orders:      make(map[int64]model.Order, len(s.orders)),
		orderItems:  make(map[int64]model.OrderItem, len(s.orderItems)),
		movements:   append([]model.StockMovement(nil), s.movements...),
		sequences:   make(map[string]int64, len(s.sequences)),
		auditLogs:   append([]model.AuditLog(nil), s.auditLogs...),
		customers:   make(map[int64]model.Customer, len(s.customers)),
		messageLogs: append([]model.MessageLog(nil), s.messageLogs...),
		activations: make(map[string]model.AIActivation, len(s.activations)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.activations {
		c.activations[k] = v
	}
	if s.ecommerce != nil {
		e := *s.ecommerce
		c.ecommerce = &e
	}
	return c
}

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

func New() *Store {
	return &Store{data: newState(), now: time.Now}
}

// テスト用に時計を差し替える
func (s *Store) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) nextID() int64 {
	s.data.seq++
	return s.data.seq
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repository.TxRepos) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.data.clone()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snap)
			panic(p)
		}
		if err != nil {
			s.restore(snap)
		}
	}()

	return fn(s)
}

func (s *Store) restore(snap *state) {
	s.mu.Lock()
	s.data = snap
	s.mu.Unlock()
}

func (s *Store) Orders() repository.OrderRepository           { return &orderRepo{s: s} }
func (s *Store) OrderItems() repository.OrderItemRepository   { return &orderItemRepo{s: s} }
func (s *Store) Inventory() repository.InventoryRepository    { return &inventoryRepo{s: s} }
func (s *Store) Products() repository.ProductRepository       { return &productRepo{s: s} }
func (s *Store) AuditLogs() repository.AuditLogRepository     { return &auditLogRepo{s: s} }
func (s *Store) Customers() repository.CustomerRepository     { return &customerRepo{s: s} }
func (s *Store) MessageLogs() repository.MessageLogRepository { return &messageLogRepo{s: s} }
func (s *Store) Settings() repository.SettingRepository       { return &settingRepo{s: s} }

// ===== テスト用の直接操作 =====

func (s *Store) SeedProduct(p model.Product) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.nextID()
	}
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.data.products[p.ID] = p
	return p
}

func (s *Store) SeedCustomer(c model.Customer) model.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID()
	}
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.data.customers[c.ID] = c
	return c
}

func (s *Store) Stock(productID int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.products[productID].Stock
}

func (s *Store) AllOrders() []model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, 0, len(s.data.orders))
	for _, o := range s.data.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) AllOrderItems() []model.OrderItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OrderItem, 0, len(s.data.orderItems))
	for _, it := range s.data.orderItems {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) AllMovements() []model.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.StockMovement(nil), s.data.movements...)
}

func (s *Store) AllAuditLogs() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.data.auditLogs...)
}
