package usecase

import (
	"context"
	"log/slog"
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/metrics"
	repo "storefront/internal/repository"
)

type AdminOrderUsecase struct {
	tx        repo.TransactionManager
	allocator *Allocator
	restorer  *Restorer
	recalc    *Recalculator
	events    OrderEventPublisher
	metrics   *metrics.Metrics
	log       *slog.Logger
	idGen     IDGenerator
	clock     Clock
}

type AdminOrderDeps struct {
	Allocator *Allocator
	Restorer  *Restorer
	Recalc    *Recalculator
	Events    OrderEventPublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	IDGen     IDGenerator
	Clock     Clock
}

func NewAdminOrderUsecase(tx repo.TransactionManager, d AdminOrderDeps) *AdminOrderUsecase {
	u := &AdminOrderUsecase{
		tx:        tx,
		allocator: d.Allocator,
		restorer:  d.Restorer,
		recalc:    d.Recalc,
		events:    d.Events,
		metrics:   d.Metrics,
		log:       d.Logger,
		idGen:     d.IDGen,
		clock:     d.Clock,
	}
	if u.events == nil {
		u.events = noopOrderEventPublisher{}
	}
	if u.log == nil {
		u.log = slog.Default()
	}
	return u
}

type AdminOrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return AdminOrderListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	out := AdminOrderListOutput{Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return dbError(err)
		}

		out.Total = total
		out.Items = make([]model.Order, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return dbError(err)
			}
			o.Items = items
			out.Items = append(out.Items, o)
		}
		return nil
	})

	if err != nil {
		return AdminOrderListOutput{}, err
	}
	return out, nil
}

// 注文詳細（明細込み）
func (u *AdminOrderUsecase) Get(ctx context.Context, orderID int64) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindWithItems(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "order not found")
		}
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

// 注文のステータス変更履歴（監査ログ）
func (u *AdminOrderUsecase) History(ctx context.Context, orderID int64) ([]model.AuditLog, error) {
	if orderID <= 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	action := model.AuditActionUpdateOrderStatus
	resource := model.AuditResourceOrder

	var logs []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Orders().FindByID(ctx, orderID); err != nil {
			if err == repo.ErrNotFound {
				return NewHTTPError(http.StatusNotFound, "order not found")
			}
			return dbError(err)
		}

		var err error
		logs, err = r.AuditLogs().List(ctx, repo.AuditLogFilter{
			Action:       &action,
			ResourceType: &resource,
			ResourceID:   &orderID,
			Limit:        200,
		})
		if err != nil {
			return dbError(err)
		}
		return nil
	})
	if err != nil {
		return []model.AuditLog{}, err
	}
	return logs, nil
}
