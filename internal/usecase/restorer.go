package usecase

import (
	"context"
	"errors"
	"net/http"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

// キャンセル時に在庫を戻す。
// 引当時の配分は再現しない（最初に見つかった物理ロケーションへ戻す）。
type Restorer struct {
	locations       []model.Location
	defaultLocation model.Location
}

func NewRestorer(locations []model.Location, defaultLocation model.Location) *Restorer {
	return &Restorer{locations: locations, defaultLocation: defaultLocation}
}

// 戻した先の在庫行を返す
func (r *Restorer) Restore(ctx context.Context, stocks repo.StockRepository, orderID int64, item model.OrderItem) (model.Stock, error) {
	if item.Quantity <= 0 {
		return model.Stock{}, NewHTTPError(http.StatusBadRequest, "invalid item quantity")
	}
	key := item.StockKey()

	s, err := stocks.FindFirstPhysical(ctx, key, r.locations)
	switch {
	case err == nil:
		if err := stocks.IncreaseQuantity(ctx, s.ID, item.Quantity); err != nil {
			return model.Stock{}, err
		}
		before := s.Quantity
		s.Quantity += item.Quantity
		mv := model.NewMovement(s, model.MovementRestore, before, s.Quantity)
		mv.OrderID = &orderID
		if err := stocks.CreateMovement(ctx, mv); err != nil {
			return model.Stock{}, err
		}
		return s, nil

	case errors.Is(err, repo.ErrNotFound):
		// 行がない（削除された等）ならデフォルトの場所に作る
		created, err := stocks.IncreaseOrCreate(ctx, key, r.defaultLocation, item.Quantity)
		if err != nil {
			return model.Stock{}, err
		}
		mv := model.NewMovement(created, model.MovementRestore, created.Quantity-item.Quantity, created.Quantity)
		mv.OrderID = &orderID
		if err := stocks.CreateMovement(ctx, mv); err != nil {
			return model.Stock{}, err
		}
		return created, nil

	default:
		return model.Stock{}, err
	}
}
