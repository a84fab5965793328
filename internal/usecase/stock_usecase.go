package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
)

// 管理画面からの在庫編集と参照
type StockUsecase struct {
	tx      repo.TransactionManager
	recalc  *Recalculator
	metrics *metrics.Metrics
	clock   Clock
}

func NewStockUsecase(tx repo.TransactionManager, recalc *Recalculator, m *metrics.Metrics, clock Clock) *StockUsecase {
	return &StockUsecase{tx: tx, recalc: recalc, metrics: m, clock: clock}
}

type SetStockInput struct {
	StockID  int64 `json:"stock_id"`
	Quantity int64 `json:"quantity"`
}

type BatchSetStockResult struct {
	Updated []model.Stock `json:"updated"`
	// onlineの行・存在しない行は無視したID
	Skipped []int64 `json:"skipped"`
}

// 物理ロケーションの1行を上書きする。onlineの行は派生値なので触らせない。
func (u *StockUsecase) SetStock(ctx context.Context, adminUserID int64, in SetStockInput) (model.Stock, error) {
	if adminUserID <= 0 {
		return model.Stock{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if in.StockID <= 0 {
		return model.Stock{}, NewHTTPError(http.StatusBadRequest, "invalid stock_id")
	}
	if in.Quantity < 0 {
		return model.Stock{}, NewHTTPError(http.StatusBadRequest, "quantity must be >= 0")
	}

	var out model.Stock
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		s, err := r.Stocks().FindByIDForUpdate(ctx, in.StockID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "stock not found")
		}
		if err != nil {
			return dbError(err)
		}
		if s.Location.IsOnline() {
			return NewHTTPError(http.StatusBadRequest, "online stock is derived")
		}

		out, err = u.adjust(ctx, r, adminUserID, s, in.Quantity)
		return err
	})
	if err != nil {
		return model.Stock{}, txError(err)
	}

	_ = u.recalc.RecalculateWithRetry(context.WithoutCancel(ctx), []model.StockKey{out.Key()})
	return out, nil
}

// 複数行をまとめて上書きする（1Tx）。負の数量が1つでもあれば全体を拒否。
func (u *StockUsecase) BatchSetStock(ctx context.Context, adminUserID int64, updates map[int64]int64) (BatchSetStockResult, error) {
	if adminUserID <= 0 {
		return BatchSetStockResult{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(updates) == 0 {
		return BatchSetStockResult{}, NewHTTPError(http.StatusBadRequest, "updates required")
	}

	ids := make([]int64, 0, len(updates))
	for id, qty := range updates {
		if id <= 0 {
			return BatchSetStockResult{}, NewHTTPError(http.StatusBadRequest, "invalid stock_id")
		}
		if qty < 0 {
			return BatchSetStockResult{}, NewHTTPError(http.StatusBadRequest, fmt.Sprintf("quantity must be >= 0 (stock_id=%d)", id))
		}
		ids = append(ids, id)
	}
	// ID順にロック
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := BatchSetStockResult{Updated: []model.Stock{}, Skipped: []int64{}}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		for _, id := range ids {
			s, err := r.Stocks().FindByIDForUpdate(ctx, id)
			if errors.Is(err, repo.ErrNotFound) {
				out.Skipped = append(out.Skipped, id)
				continue
			}
			if err != nil {
				return dbError(err)
			}
			if s.Location.IsOnline() {
				out.Skipped = append(out.Skipped, id)
				continue
			}

			updated, err := u.adjust(ctx, r, adminUserID, s, updates[id])
			if err != nil {
				return err
			}
			out.Updated = append(out.Updated, updated)
		}
		return nil
	})
	if err != nil {
		return BatchSetStockResult{}, txError(err)
	}

	keys := make([]model.StockKey, 0, len(out.Updated))
	for _, s := range out.Updated {
		keys = append(keys, s.Key())
	}
	_ = u.recalc.RecalculateWithRetry(context.WithoutCancel(ctx), keys)
	return out, nil
}

// タプルの全行（物理＋online）
func (u *StockUsecase) ListStock(ctx context.Context, productID, colorID int64, size string) ([]model.Stock, error) {
	size = strings.TrimSpace(size)
	if productID <= 0 || colorID <= 0 || size == "" {
		return []model.Stock{}, NewHTTPError(http.StatusBadRequest, "invalid stock key")
	}

	var out []model.Stock
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		rows, err := r.Stocks().ListByKey(ctx, model.StockKey{ProductID: productID, ColorVariantID: colorID, Size: size})
		if err != nil {
			return dbError(err)
		}
		out = rows
		return nil
	})
	if err != nil {
		return []model.Stock{}, err
	}
	return out, nil
}

// 全タプルのonlineフラグを作り直す（ズレの回復用）
func (u *StockUsecase) RecalculateAll(ctx context.Context, adminUserID int64) (int, error) {
	if adminUserID <= 0 {
		return 0, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	n, err := u.recalc.RecalculateAll(ctx)
	if err != nil {
		return n, err
	}

	// 全件再計算の実行記録（対象は在庫全体なのでResourceIDは0）
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		return r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  adminUserID,
			Action:       model.AuditActionRecalculateOnline,
			ResourceType: model.AuditResourceStock,
			BeforeJSON:   "{}",
			AfterJSON:    fmt.Sprintf(`{"tuples":%d}`, n),
			CreatedAt:    u.now(),
		})
	})
	if err != nil {
		return n, dbError(err)
	}
	return n, nil
}

func (u *StockUsecase) adjust(ctx context.Context, r repo.TxRepos, adminUserID int64, s model.Stock, qty int64) (model.Stock, error) {
	before := s.Quantity
	if err := r.Stocks().SetQuantity(ctx, s.ID, qty); err != nil {
		return model.Stock{}, dbError(err)
	}
	s.Quantity = qty

	//履歴を作成（差分）
	if before != qty {
		mv := model.NewMovement(s, model.MovementAdjust, before, qty)
		mv.ActorUserID = &adminUserID
		if err := r.Stocks().CreateMovement(ctx, mv); err != nil {
			return model.Stock{}, dbError(err)
		}
		u.metrics.UnitsMoved(string(model.MovementAdjust), abs(qty-before))
	}

	//監査ログを作成（在庫更新）
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  adminUserID,
		Action:       model.AuditActionUpdateStock,
		ResourceType: model.AuditResourceStock,
		ResourceID:   s.ID,
		BeforeJSON:   fmt.Sprintf(`{"quantity":%d}`, before),
		AfterJSON:    fmt.Sprintf(`{"quantity":%d}`, qty),
		CreatedAt:    u.now(),
	}); err != nil {
		return model.Stock{}, dbError(err)
	}
	return s, nil
}

func (u *StockUsecase) now() time.Time {
	if u.clock == nil {
		return time.Now()
	}
	return u.clock.Now()
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
