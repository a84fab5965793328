package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type SetOrderStatusInput struct {
	Status string `json:"status"`
}

// ステータス変更（CONFIRMEDで引当、CONFIRMED→CANCELLEDで戻し）。
// 在庫の増減・ステータス・監査ログは1Tx。onlineフラグの再計算はコミット後。
func (u *AdminOrderUsecase) SetOrderStatus(ctx context.Context, actorUserID int64, orderID int64, in SetOrderStatusInput) (model.Order, error) {
	if actorUserID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	next := model.OrderStatus(strings.ToUpper(strings.TrimSpace(in.Status)))
	if !next.Valid() {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	var (
		prev  model.OrderStatus
		keys  []model.StockKey
		moved = map[model.MovementReason]int64{}
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じ注文への同時変更はここで直列化
		o, err := r.Orders().FindByIDForUpdate(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
		if err != nil {
			return dbError(err)
		}
		prev = o.Status

		if !o.Status.CanTransitionTo(next) {
			return NewHTTPError(http.StatusBadRequest, "invalid transition")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError(err)
		}
		// ロック順をそろえる（デッドロック回避）
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].StockKey().Less(items[j].StockKey())
		})
		for _, it := range items {
			keys = append(keys, it.StockKey())
		}

		// すでに同じなら在庫は触らない
		if o.Status == next {
			return nil
		}

		switch {
		case next == model.OrderStatusConfirmed:
			for _, it := range items {
				allocs, err := u.allocator.Allocate(ctx, r.Stocks(), orderID, it)
				if err != nil {
					var ise *InsufficientStockError
					if errors.As(err, &ise) {
						u.metrics.Allocation("insufficient")
						return insufficientStock(ise)
					}
					return txError(err)
				}
				for _, a := range allocs {
					moved[model.MovementAllocate] += a.Quantity
				}
			}
			u.metrics.Allocation("ok")

		case next == model.OrderStatusCancelled && o.Status == model.OrderStatusConfirmed:
			for _, it := range items {
				if _, err := u.restorer.Restore(ctx, r.Stocks(), orderID, it); err != nil {
					return txError(err)
				}
				moved[model.MovementRestore] += it.Quantity
			}
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, next); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewHTTPError(http.StatusNotFound, "order not found")
			}
			return txError(err)
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		before, _ := json.Marshal(map[string]string{"status": string(o.Status)})
		after, _ := json.Marshal(map[string]string{"status": string(next)})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    u.now(),
		}); err != nil {
			return txError(err)
		}
		return nil
	})
	if err != nil {
		return model.Order{}, txError(err)
	}

	for reason, n := range moved {
		u.metrics.UnitsMoved(string(reason), n)
	}

	// ここから先はコミット済み。リクエストが切れても最後までやる
	postCtx := context.WithoutCancel(ctx)

	// 失敗してもステータス変更は戻さない（ログとメトリクスに残る）
	_ = u.recalc.RecalculateWithRetry(postCtx, keys)

	if prev != next {
		u.metrics.Transition(string(prev), string(next))
		u.publishStatusChanged(postCtx, actorUserID, orderID, prev, next)
	}

	var out model.Order
	err = u.tx.WithinTx(postCtx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindWithItems(postCtx, orderID)
		if err != nil {
			return dbError(err)
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, err
	}
	return out, nil
}

func (u *AdminOrderUsecase) publishStatusChanged(ctx context.Context, actorUserID, orderID int64, from, to model.OrderStatus) {
	ev := model.OrderStatusChanged{
		OrderID:     orderID,
		From:        from,
		To:          to,
		ActorUserID: actorUserID,
		OccurredAt:  u.now(),
	}
	if u.idGen != nil {
		ev.EventID = u.idGen.NewID()
	}
	if err := u.events.PublishStatusChanged(ctx, ev); err != nil {
		u.metrics.PublishFailed("kafka")
		u.log.Error("order event publish failed",
			"order_id", orderID,
			"from", from,
			"to", to,
			"err", err,
		)
	}
}

func (u *AdminOrderUsecase) now() time.Time {
	if u.clock == nil {
		return time.Now()
	}
	return u.clock.Now()
}

// Tx内のエラーを分類する。HTTPErrorはそのまま通す。
func txError(err error) error {
	if _, ok := AsHTTPError(err); ok {
		return err
	}
	if errors.Is(err, repo.ErrConflict) {
		return &HTTPError{
			Status:  http.StatusInternalServerError,
			Kind:    KindPersistenceFailure,
			Message: "write conflict",
			Err:     err,
		}
	}
	return dbError(err)
}
