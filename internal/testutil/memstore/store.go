// Package memstore はテスト用のインメモリ実装。
// WithinTx は全体を直列化し、エラーならスナップショットごと捨てる（ロールバック）。
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type state struct {
	nextID int64

	products  map[int64]model.Product
	colors    map[int64]model.ColorVariant
	sizes     map[int64]model.Size
	orders    map[int64]model.Order
	items     map[int64][]model.OrderItem
	stocks    map[int64]model.Stock
	movements []model.StockMovement
	audits    []model.AuditLog
}

func newState() *state {
	return &state{
		products: map[int64]model.Product{},
		colors:   map[int64]model.ColorVariant{},
		sizes:    map[int64]model.Size{},
		orders:   map[int64]model.Order{},
		items:    map[int64][]model.OrderItem{},
		stocks:   map[int64]model.Stock{},
	}
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.colors {
		c.colors[k] = v
	}
	for k, v := range s.sizes {
		c.sizes[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.items {
		c.items[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.stocks {
		c.stocks[k] = v
	}
	c.movements = append([]model.StockMovement(nil), s.movements...)
	c.audits = append([]model.AuditLog(nil), s.audits...)
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

type fault struct {
	err   error
	times int
}

type Store struct {
	mu     sync.Mutex
	data   *state
	faults map[string]*fault
	txs    int
}

var _ repo.TransactionManager = (*Store)(nil)

func New() *Store {
	return &Store{data: newState(), faults: map[string]*fault{}}
}

// opがtimes回エラーを返すようにする（0以下なら毎回）
func (s *Store) Fail(op string, err error, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = &fault{err: err, times: times}
}

// コミット・ロールバック問わず開始されたTxの数
func (s *Store) TxCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txs
}

func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs++

	work := s.data.clone()
	if err := fn(&tx{st: work, store: s}); err != nil {
		return err
	}
	s.data = work
	return nil
}

// faultはmuを持った状態で呼ばれる
func (s *Store) fault(op string) error {
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	if f.times > 0 {
		f.times--
		if f.times == 0 {
			delete(s.faults, op)
		}
	}
	return f.err
}

// ===== seed / 参照（Txの外から） =====

func (s *Store) AddProduct(name string, price string) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := model.Product{ID: s.data.id(), Name: name, Price: mustDecimal(price), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	s.data.products[p.ID] = p
	return p
}

func (s *Store) AddColor(productID int64, color string) model.ColorVariant {
	s.mu.Lock()
	defer s.mu.Unlock()
	cv := model.ColorVariant{ID: s.data.id(), ProductID: productID, Color: color}
	s.data.colors[cv.ID] = cv
	return cv
}

func (s *Store) AddSize(value string) model.Size {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sz := range s.data.sizes {
		if sz.Value == value {
			return sz
		}
	}
	sz := model.Size{ID: s.data.id(), Value: value}
	s.data.sizes[sz.ID] = sz
	return sz
}

func (s *Store) AddStock(key model.StockKey, loc model.Location, qty int64) model.Stock {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range s.data.stocks {
		if st.Key() == key && st.Location == loc {
			panic(fmt.Sprintf("memstore: duplicate stock %s@%s", key, loc))
		}
	}
	now := time.Now()
	st := model.Stock{
		ID:             s.data.id(),
		ProductID:      key.ProductID,
		ColorVariantID: key.ColorVariantID,
		Size:           key.Size,
		Location:       loc,
		Quantity:       qty,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.data.stocks[st.ID] = st
	return st
}

// 明細のSizeIDはAddSizeで作ったもの
func (s *Store) AddOrder(status model.OrderStatus, items ...model.OrderItem) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	o := model.Order{
		ID:           s.data.id(),
		CustomerName: "test",
		PhoneNumber:  "0000",
		Address:      "somewhere",
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.data.orders[o.ID] = o
	for _, it := range items {
		it.ID = s.data.id()
		it.OrderID = o.ID
		it.CreatedAt = now
		it.Size = nil
		it.Product = nil
		it.ColorVariant = nil
		s.data.items[o.ID] = append(s.data.items[o.ID], it)
	}
	return o
}

func (s *Store) Order(id int64) model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.orders[id]
}

func (s *Store) Stock(id int64) model.Stock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.stocks[id]
}

// タプルの行（ID順）
func (s *Store) StocksByKey(key model.StockKey) []model.Stock {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.byKey(key)
}

func (s *Store) PhysicalTotal(key model.StockKey) int64 {
	var total int64
	for _, st := range s.StocksByKey(key) {
		if !st.Location.IsOnline() {
			total += st.Quantity
		}
	}
	return total
}

// onlineの行がなければ-1
func (s *Store) OnlineQuantity(key model.StockKey) int64 {
	for _, st := range s.StocksByKey(key) {
		if st.Location.IsOnline() {
			return st.Quantity
		}
	}
	return -1
}

func (s *Store) Movements() []model.StockMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.StockMovement(nil), s.data.movements...)
}

func (s *Store) Audits() []model.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.AuditLog(nil), s.data.audits...)
}

func (s *state) byKey(key model.StockKey) []model.Stock {
	var out []model.Stock
	for _, st := range s.stocks {
		if st.Key() == key {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
