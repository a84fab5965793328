package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	// Sizeをpreloadして返す（在庫キーの組み立てに必要）
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)
}
