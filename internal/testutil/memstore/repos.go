package memstore

import (
	"context"
	"sort"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type tx struct {
	st    *state
	store *Store
}

func (t *tx) Orders() repo.OrderRepository         { return orders{t} }
func (t *tx) OrderItems() repo.OrderItemRepository { return orderItems{t} }
func (t *tx) Stocks() repo.StockRepository         { return stocks{t} }
func (t *tx) Catalog() repo.CatalogRepository      { return catalog{t} }
func (t *tx) AuditLogs() repo.AuditLogRepository   { return auditLogs{t} }

func (t *tx) fail(op string) error { return t.store.fault(op) }

// ===== orders =====

type orders struct{ t *tx }

func (r orders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	if err := r.t.fail("Orders.FindByID"); err != nil {
		return model.Order{}, err
	}
	o, ok := r.t.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	return o, nil
}

func (r orders) FindByIDForUpdate(ctx context.Context, orderID int64) (model.Order, error) {
	if err := r.t.fail("Orders.FindByIDForUpdate"); err != nil {
		return model.Order{}, err
	}
	return r.FindByID(ctx, orderID)
}

func (r orders) FindWithItems(ctx context.Context, orderID int64) (model.Order, error) {
	if err := r.t.fail("Orders.FindWithItems"); err != nil {
		return model.Order{}, err
	}
	o, ok := r.t.st.orders[orderID]
	if !ok {
		return model.Order{}, repo.ErrNotFound
	}
	items := r.t.st.items[orderID]
	o.Items = make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		o.Items = append(o.Items, r.t.preload(it, true))
	}
	return o, nil
}

func (r orders) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.t.fail("Orders.Create"); err != nil {
		return 0, err
	}
	if order.IdempotencyKey != nil {
		for _, o := range r.t.st.orders {
			if o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
				return 0, repo.ErrDuplicate
			}
		}
	}
	now := time.Now()
	order.ID = r.t.st.id()
	order.Items = nil
	order.CreatedAt = now
	order.UpdatedAt = now
	r.t.st.orders[order.ID] = order
	return order.ID, nil
}

func (r orders) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	if err := r.t.fail("Orders.UpdateStatus"); err != nil {
		return err
	}
	o, ok := r.t.st.orders[orderID]
	if !ok {
		return repo.ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	r.t.st.orders[orderID] = o
	return nil
}

func (r orders) FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error) {
	for _, o := range r.t.st.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			return o, true, nil
		}
	}
	return model.Order{}, false, nil
}

func (r orders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var all []model.Order
	for _, o := range r.t.st.orders {
		if f.Status != "" && string(o.Status) != f.Status {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		all = append(all, o)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := int64(len(all))
	start := (f.Page - 1) * f.Limit
	if start >= len(all) {
		return []model.Order{}, total, nil
	}
	end := min(start+f.Limit, len(all))
	return all[start:end], total, nil
}

// ===== order items =====

type orderItems struct{ t *tx }

func (r orderItems) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if err := r.t.fail("OrderItems.CreateBulk"); err != nil {
		return err
	}
	for _, it := range items {
		it.ID = r.t.st.id()
		it.OrderID = orderID
		it.CreatedAt = time.Now()
		it.Product, it.ColorVariant, it.Size = nil, nil, nil
		r.t.st.items[orderID] = append(r.t.st.items[orderID], it)
	}
	return nil
}

func (r orderItems) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	if err := r.t.fail("OrderItems.ListByOrderID"); err != nil {
		return nil, err
	}
	items := r.t.st.items[orderID]
	out := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, r.t.preload(it, false))
	}
	return out, nil
}

func (t *tx) preload(it model.OrderItem, all bool) model.OrderItem {
	if sz, ok := t.st.sizes[it.SizeID]; ok {
		it.Size = &sz
	}
	if !all {
		return it
	}
	if p, ok := t.st.products[it.ProductID]; ok {
		it.Product = &p
	}
	if cv, ok := t.st.colors[it.ColorVariantID]; ok {
		it.ColorVariant = &cv
	}
	return it
}

// ===== catalog =====

type catalog struct{ t *tx }

func (r catalog) FindProduct(ctx context.Context, productID int64) (model.Product, error) {
	p, ok := r.t.st.products[productID]
	if !ok {
		return model.Product{}, repo.ErrNotFound
	}
	return p, nil
}

func (r catalog) FindColorVariant(ctx context.Context, productID int64, color string) (model.ColorVariant, error) {
	for _, cv := range r.t.st.colors {
		if cv.ProductID == productID && cv.Color == color {
			return cv, nil
		}
	}
	return model.ColorVariant{}, repo.ErrNotFound
}

func (r catalog) FindSizeByValue(ctx context.Context, value string) (model.Size, error) {
	for _, sz := range r.t.st.sizes {
		if sz.Value == value {
			return sz, nil
		}
	}
	return model.Size{}, repo.ErrNotFound
}

// ===== audit logs =====

type auditLogs struct{ t *tx }

func (r auditLogs) Create(ctx context.Context, log model.AuditLog) error {
	if err := r.t.fail("AuditLogs.Create"); err != nil {
		return err
	}
	log.ID = r.t.st.id()
	r.t.st.audits = append(r.t.st.audits, log)
	return nil
}

func (r auditLogs) List(ctx context.Context, f repo.AuditLogFilter) ([]model.AuditLog, error) {
	var out []model.AuditLog
	for i := len(r.t.st.audits) - 1; i >= 0; i-- {
		l := r.t.st.audits[i]
		if f.Action != nil && l.Action != *f.Action {
			continue
		}
		if f.ResourceType != nil && l.ResourceType != *f.ResourceType {
			continue
		}
		if f.ResourceID != nil && l.ResourceID != *f.ResourceID {
			continue
		}
		if f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID {
			continue
		}
		if f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && !l.CreatedAt.Before(*f.CreatedTo) {
			continue
		}
		out = append(out, l)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
