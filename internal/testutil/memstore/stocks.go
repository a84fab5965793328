package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type stocks struct{ t *tx }

func isPhysical(loc model.Location, locations []model.Location) bool {
	for _, l := range locations {
		if l == loc {
			return true
		}
	}
	return false
}

func (r stocks) physical(key model.StockKey, locations []model.Location) []model.Stock {
	var out []model.Stock
	for _, s := range r.t.st.byKey(key) {
		if isPhysical(s.Location, locations) {
			out = append(out, s)
		}
	}
	return out
}

func (r stocks) LockPhysical(ctx context.Context, key model.StockKey, locations []model.Location) ([]model.Stock, error) {
	if err := r.t.fail("Stocks.LockPhysical"); err != nil {
		return nil, err
	}
	var out []model.Stock
	for _, s := range r.physical(key, locations) {
		if s.Quantity > 0 {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r stocks) FindFirstPhysical(ctx context.Context, key model.StockKey, locations []model.Location) (model.Stock, error) {
	if err := r.t.fail("Stocks.FindFirstPhysical"); err != nil {
		return model.Stock{}, err
	}
	rows := r.physical(key, locations)
	if len(rows) == 0 {
		return model.Stock{}, repo.ErrNotFound
	}
	return rows[0], nil
}

func (r stocks) FindByID(ctx context.Context, stockID int64) (model.Stock, error) {
	s, ok := r.t.st.stocks[stockID]
	if !ok {
		return model.Stock{}, repo.ErrNotFound
	}
	return s, nil
}

func (r stocks) FindByIDForUpdate(ctx context.Context, stockID int64) (model.Stock, error) {
	if err := r.t.fail("Stocks.FindByIDForUpdate"); err != nil {
		return model.Stock{}, err
	}
	return r.FindByID(ctx, stockID)
}

func (r stocks) ListByKey(ctx context.Context, key model.StockKey) ([]model.Stock, error) {
	out := r.t.st.byKey(key)
	if out == nil {
		out = []model.Stock{}
	}
	return out, nil
}

func (r stocks) IncreaseOrCreate(ctx context.Context, key model.StockKey, location model.Location, qty int64) (model.Stock, error) {
	if err := r.t.fail("Stocks.IncreaseOrCreate"); err != nil {
		return model.Stock{}, err
	}
	for _, s := range r.t.st.byKey(key) {
		if s.Location == location {
			s.Quantity += qty
			s.UpdatedAt = time.Now()
			r.t.st.stocks[s.ID] = s
			return s, nil
		}
	}
	now := time.Now()
	s := model.Stock{
		ID:             r.t.st.id(),
		ProductID:      key.ProductID,
		ColorVariantID: key.ColorVariantID,
		Size:           key.Size,
		Location:       location,
		Quantity:       qty,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.t.st.stocks[s.ID] = s
	return s, nil
}

func (r stocks) SetQuantity(ctx context.Context, stockID int64, qty int64) error {
	if err := r.t.fail("Stocks.SetQuantity"); err != nil {
		return err
	}
	s, ok := r.t.st.stocks[stockID]
	if !ok {
		return repo.ErrNotFound
	}
	// DBのCHECK制約と同じ
	if qty < 0 {
		return fmt.Errorf("memstore: stock %d quantity %d violates check", stockID, qty)
	}
	s.Quantity = qty
	s.UpdatedAt = time.Now()
	r.t.st.stocks[stockID] = s
	return nil
}

func (r stocks) IncreaseQuantity(ctx context.Context, stockID int64, delta int64) error {
	if err := r.t.fail("Stocks.IncreaseQuantity"); err != nil {
		return err
	}
	s, ok := r.t.st.stocks[stockID]
	if !ok {
		return repo.ErrNotFound
	}
	return r.SetQuantity(ctx, stockID, s.Quantity+delta)
}

func (r stocks) SumPhysical(ctx context.Context, keys []model.StockKey, locations []model.Location) (map[model.StockKey]int64, error) {
	if err := r.t.fail("Stocks.SumPhysical"); err != nil {
		return nil, err
	}
	out := make(map[model.StockKey]int64, len(keys))
	for _, k := range keys {
		rows := r.physical(k, locations)
		if len(rows) == 0 {
			continue
		}
		var total int64
		for _, s := range rows {
			total += s.Quantity
		}
		out[k] = total
	}
	return out, nil
}

func (r stocks) ListKeysWithPhysical(ctx context.Context, locations []model.Location) ([]model.StockKey, error) {
	seen := map[model.StockKey]bool{}
	var out []model.StockKey
	for _, s := range r.t.st.stocks {
		if !isPhysical(s.Location, locations) || seen[s.Key()] {
			continue
		}
		seen[s.Key()] = true
		out = append(out, s.Key())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out, nil
}

func (r stocks) UpsertOnline(ctx context.Context, key model.StockKey, qty int64) error {
	if err := r.t.fail("Stocks.UpsertOnline"); err != nil {
		return err
	}
	_, err := r.setOnline(key, qty)
	return err
}

func (r stocks) setOnline(key model.StockKey, qty int64) (model.Stock, error) {
	for _, s := range r.t.st.byKey(key) {
		if s.Location.IsOnline() {
			s.Quantity = qty
			s.UpdatedAt = time.Now()
			r.t.st.stocks[s.ID] = s
			return s, nil
		}
	}
	now := time.Now()
	s := model.Stock{
		ID:             r.t.st.id(),
		ProductID:      key.ProductID,
		ColorVariantID: key.ColorVariantID,
		Size:           key.Size,
		Location:       model.LocationOnline,
		Quantity:       qty,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.t.st.stocks[s.ID] = s
	return s, nil
}

func (r stocks) CreateMovement(ctx context.Context, m model.StockMovement) error {
	if err := r.t.fail("Stocks.CreateMovement"); err != nil {
		return err
	}
	m.ID = r.t.st.id()
	m.CreatedAt = time.Now()
	r.t.st.movements = append(r.t.st.movements, m)
	return nil
}
