package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// カタログ参照だけを約束（商品の登録・編集は別システム）。
type CatalogRepository interface {
	FindProduct(ctx context.Context, productID int64) (model.Product, error)
	FindColorVariant(ctx context.Context, productID int64, color string) (model.ColorVariant, error)
	FindSizeByValue(ctx context.Context, value string) (model.Size, error)
}

// 同時更新の衝突（serialization failure / deadlock）。リトライしてよい。
var ErrConflict = errors.New("write conflict")

// 一意制約違反
var ErrDuplicate = errors.New("duplicate")
