package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// 在庫台帳の保存・取得の約束。
// ロックを取るメソッドはTx内で呼ぶ前提。
type StockRepository interface {
	// 物理ロケーションの在庫(quantity > 0)を行ロック付きで取得（ID順）
	LockPhysical(ctx context.Context, key model.StockKey, locations []model.Location) ([]model.Stock, error)

	// 物理ロケーションの最初の1行（ID最小）。なければErrNotFound
	FindFirstPhysical(ctx context.Context, key model.StockKey, locations []model.Location) (model.Stock, error)

	FindByID(ctx context.Context, stockID int64) (model.Stock, error)
	// 更新用にロックして1件取得
	FindByIDForUpdate(ctx context.Context, stockID int64) (model.Stock, error)

	// タプルの全行（online含む）
	ListByKey(ctx context.Context, key model.StockKey) ([]model.Stock, error)

	// 行があれば加算、なければ作成。結果の行を返す
	IncreaseOrCreate(ctx context.Context, key model.StockKey, location model.Location, qty int64) (model.Stock, error)

	// 数量を上書き
	SetQuantity(ctx context.Context, stockID int64, qty int64) error

	// 数量を加算
	IncreaseQuantity(ctx context.Context, stockID int64, delta int64) error

	// タプルごとの物理在庫合計
	SumPhysical(ctx context.Context, keys []model.StockKey, locations []model.Location) (map[model.StockKey]int64, error)

	// 物理在庫の行を持つ全タプル
	ListKeysWithPhysical(ctx context.Context, locations []model.Location) ([]model.StockKey, error)

	// onlineの行を作成or上書き
	UpsertOnline(ctx context.Context, key model.StockKey, qty int64) error

	// 変動履歴を追記
	CreateMovement(ctx context.Context, m model.StockMovement) error
}
