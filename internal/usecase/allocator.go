package usecase

import (
	"context"
	"net/http"
	"sort"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// 1ロケーションから引き当てた量
type Allocation struct {
	StockID  int64          `json:"stock_id"`
	Location model.Location `json:"location"`
	Quantity int64          `json:"quantity"`
}

// 注文確定時に物理在庫を減らす。
// 在庫の多いロケーションから順に取る。
type Allocator struct {
	locations []model.Location
	rank      map[model.Location]int
}

func NewAllocator(locations []model.Location) *Allocator {
	rank := make(map[model.Location]int, len(locations))
	for i, l := range locations {
		rank[l] = i
	}
	return &Allocator{locations: locations, rank: rank}
}

// Tx内で呼ぶこと。失敗したらTxごとロールバックされる前提。
func (a *Allocator) Allocate(ctx context.Context, stocks repo.StockRepository, orderID int64, item model.OrderItem) ([]Allocation, error) {
	if item.Quantity <= 0 {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid item quantity")
	}
	key := item.StockKey()

	// 同じタプルを触る他の引当はここで待つ
	rows, err := stocks.LockPhysical(ctx, key, a.locations)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Quantity != rows[j].Quantity {
			return rows[i].Quantity > rows[j].Quantity
		}
		return a.rank[rows[i].Location] < a.rank[rows[j].Location]
	})

	var available int64
	for _, s := range rows {
		available += s.Quantity
	}
	if available < item.Quantity {
		return nil, &InsufficientStockError{Key: key, Requested: item.Quantity, Available: available}
	}

	remaining := item.Quantity
	allocs := make([]Allocation, 0, len(rows))
	for _, s := range rows {
		if remaining == 0 {
			break
		}
		take := min(s.Quantity, remaining)
		after := s.Quantity - take

		if err := stocks.SetQuantity(ctx, s.ID, after); err != nil {
			return nil, err
		}

		mv := model.NewMovement(s, model.MovementAllocate, s.Quantity, after)
		mv.OrderID = &orderID
		if err := stocks.CreateMovement(ctx, mv); err != nil {
			return nil, err
		}

		allocs = append(allocs, Allocation{StockID: s.ID, Location: s.Location, Quantity: take})
		remaining -= take
	}

	return allocs, nil
}
