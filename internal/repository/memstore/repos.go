package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"shopbot/internal/domain/model"
	"shopbot/internal/repository"
)

// ===== products / inventory =====

type productRepo struct{ s *Store }

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.products[id]
	if !ok || p.DeletedAt.Valid {
		return model.Product{}, repository.ErrNotFound
	}
	return p, nil
}

// Txが直列化されているのでロックは不要
func (r *productRepo) FindByIDForUpdate(ctx context.Context, id int64) (model.Product, error) {
	return r.FindByID(ctx, id)
}

type inventoryRepo struct{ s *Store }

func (r *inventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.products[productID]
	if !ok || p.DeletedAt.Valid || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	p.UpdatedAt = r.s.now()
	r.s.data.products[productID] = p
	return true, nil
}

func (r *inventoryRepo) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.data.products[productID]
	if !ok || p.DeletedAt.Valid {
		return repository.ErrNotFound
	}
	p.Stock += qty
	p.UpdatedAt = r.s.now()
	r.s.data.products[productID] = p
	return nil
}

func (r *inventoryRepo) CreateMovement(ctx context.Context, m model.StockMovement) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.data.movements {
		if ex.OrderID == m.OrderID && ex.ProductID == m.ProductID && ex.Reason == m.Reason {
			return false, nil
		}
	}
	m.ID = r.s.nextID()
	m.CreatedAt = r.s.now()
	r.s.data.movements = append(r.s.data.movements, m)
	return true, nil
}

// ===== orders =====

type orderRepo struct{ s *Store }

func (r *orderRepo) NextSequence(ctx context.Context, day string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.sequences[day]++
	return r.s.data.sequences[day], nil
}

func (r *orderRepo) Create(ctx context.Context, o model.Order) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.data.orders {
		if ex.OrderNumber == o.OrderNumber || ex.IdempotencyKey == o.IdempotencyKey {
			return model.Order{}, repository.ErrDuplicate
		}
	}
	o.ID = r.s.nextID()
	o.CreatedAt = r.s.now()
	o.UpdatedAt = o.CreatedAt
	r.s.data.orders[o.ID] = o
	return o, nil
}

func (r *orderRepo) AttachBill(ctx context.Context, orderID int64, bill repository.BillAttachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.orders[orderID]
	if !ok {
		return repository.ErrNotFound
	}
	billID, collectionID := bill.BillID, bill.CollectionID
	o.BillplzBillID = &billID
	o.BillplzCollectionID = &collectionID
	o.PaymentMetadata = bill.Metadata
	o.UpdatedAt = r.s.now()
	r.s.data.orders[orderID] = o
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.orders[orderID]
	if !ok {
		return model.Order{}, repository.ErrNotFound
	}
	return o, nil
}

func (r *orderRepo) FindByNumber(ctx context.Context, orderNumber string) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findBy(func(o model.Order) bool { return o.OrderNumber == orderNumber })
}

func (r *orderRepo) FindForReconcile(ctx context.Context, orderNumber string, billID string) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if orderNumber != "" {
		if o, err := r.findBy(func(o model.Order) bool { return o.OrderNumber == orderNumber }); err == nil {
			return o, nil
		}
	}
	if billID != "" {
		return r.findBy(func(o model.Order) bool { return o.BillplzBillID != nil && *o.BillplzBillID == billID })
	}
	return model.Order{}, repository.ErrNotFound
}

func (r *orderRepo) TransitionPayment(ctx context.Context, t repository.PaymentTransition) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.data.orders[t.OrderID]
	if !ok || o.PaymentStatus != t.From {
		return false, nil
	}
	reconciledAt := t.ReconciledAt
	o.PaymentStatus = t.To
	o.Status = t.Status
	o.PaidAt = t.PaidAt
	o.ReconciledAt = &reconciledAt
	o.PaymentMetadata = t.Metadata
	o.UpdatedAt = r.s.now()
	r.s.data.orders[t.OrderID] = o
	return true, nil
}

func (r *orderRepo) FindByNumberAndEmail(ctx context.Context, orderNumber string, email string) (model.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findBy(func(o model.Order) bool {
		return o.OrderNumber == orderNumber && strings.EqualFold(o.CustomerEmail, email)
	})
}

// 呼び出し側でmuを持っていること
func (r *orderRepo) findBy(match func(model.Order) bool) (model.Order, error) {
	for _, o := range r.s.data.orders {
		if match(o) {
			return o, nil
		}
	}
	return model.Order{}, repository.ErrNotFound
}

type orderItemRepo struct{ s *Store }

func (r *orderItemRepo) Create(ctx context.Context, it model.OrderItem) (model.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.orders[it.OrderID]; !ok {
		return model.OrderItem{}, repository.ErrNotFound
	}
	it.ID = r.s.nextID()
	it.CreatedAt = r.s.now()
	r.s.data.orderItems[it.ID] = it
	return it, nil
}

func (r *orderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.OrderItem{}
	for _, it := range r.s.data.orderItems {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ===== audit logs =====

type auditLogRepo struct{ s *Store }

func (r *auditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	log.ID = r.s.nextID()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.s.now()
	}
	r.s.data.auditLogs = append(r.s.data.auditLogs, log)
	return nil
}

// ===== customers / message logs =====

type customerRepo struct{ s *Store }

func (r *customerRepo) Create(ctx context.Context, c model.Customer) (model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ex := range r.s.data.customers {
		if ex.PhoneNumber == c.PhoneNumber {
			return model.Customer{}, repository.ErrDuplicate
		}
	}
	c.ID = r.s.nextID()
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	r.s.data.customers[c.ID] = c
	return c, nil
}

func (r *customerRepo) FindByID(ctx context.Context, id int64) (model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.data.customers[id]
	if !ok {
		return model.Customer{}, repository.ErrNotFound
	}
	return c, nil
}

func (r *customerRepo) FindByPhone(ctx context.Context, phone string) (model.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.data.customers {
		if c.PhoneNumber == phone {
			return c, nil
		}
	}
	return model.Customer{}, repository.ErrNotFound
}

type messageLogRepo struct{ s *Store }

func (r *messageLogRepo) Create(ctx context.Context, m model.MessageLog) (model.MessageLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.customers[m.CustomerID]; !ok {
		return model.MessageLog{}, repository.ErrNotFound
	}
	m.ID = r.s.nextID()
	m.CreatedAt = r.s.now()
	m.UpdatedAt = m.CreatedAt
	m.Customer = nil
	r.s.data.messageLogs = append(r.s.data.messageLogs, m)
	return m, nil
}

func (r *messageLogRepo) ListRecent(ctx context.Context, limit int) ([]model.MessageLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]model.MessageLog(nil), r.s.data.messageLogs...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		if c, ok := r.s.data.customers[out[i].CustomerID]; ok {
			c := c
			out[i].Customer = &c
		}
	}
	return out, nil
}

func (r *messageLogRepo) ListByCustomerID(ctx context.Context, customerID int64) ([]model.MessageLog, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.MessageLog{}
	for _, m := range r.s.data.messageLogs {
		if m.CustomerID == customerID {
			out = append(out, m)
		}
	}
	return out, nil
}

// ===== settings =====

type settingRepo struct{ s *Store }

func (r *settingRepo) GetActivation(ctx context.Context, name string) (model.AIActivation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.activation(name), nil
}

func (r *settingRepo) SetActivation(ctx context.Context, name string, active bool, at time.Time) (model.AIActivation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a := r.activation(name)
	a.IsActive = active
	a.LastUpdatedAt = at
	a.UpdatedAt = r.s.now()
	r.s.data.activations[name] = a
	return a, nil
}

// 呼び出し側でmuを持っていること
func (r *settingRepo) activation(name string) model.AIActivation {
	if a, ok := r.s.data.activations[name]; ok {
		return a
	}
	now := r.s.now()
	a := model.AIActivation{
		ID:            r.s.nextID(),
		Name:          name,
		IsActive:      true,
		LastUpdatedAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.s.data.activations[name] = a
	return a
}

func (r *settingRepo) GetEcommerce(ctx context.Context) (model.EcommerceSetting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.data.ecommerce == nil {
		return model.DefaultEcommerceSetting(), nil
	}
	return *r.s.data.ecommerce, nil
}

func (r *settingRepo) SaveEcommerce(ctx context.Context, st model.EcommerceSetting) (model.EcommerceSetting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	if r.s.data.ecommerce == nil {
		st.ID = r.s.nextID()
		st.CreatedAt = now
	} else {
		st.ID = r.s.data.ecommerce.ID
		st.CreatedAt = r.s.data.ecommerce.CreatedAt
	}
	st.UpdatedAt = now
	r.s.data.ecommerce = &st
	return st, nil
}
