package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockGormRepository struct {
	db *gorm.DB
}

func NewStockGormRepository(db *gorm.DB) *StockGormRepository {
	return &StockGormRepository{db: db}
}

// 物理在庫をID順にロックして取る（ロック順を固定してデッドロックを避ける）
func (r *StockGormRepository) LockPhysical(ctx context.Context, key model.StockKey, locations []model.Location) ([]model.Stock, error) {
	var rows []model.Stock
	err := r.byKey(ctx, key).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("location IN ? AND quantity > 0", locationStrings(locations)).
		Order("id asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *StockGormRepository) FindFirstPhysical(ctx context.Context, key model.StockKey, locations []model.Location) (model.Stock, error) {
	var s model.Stock
	err := r.byKey(ctx, key).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("location IN ?", locationStrings(locations)).
		Order("id asc").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Stock{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Stock{}, err
	}
	return s, nil
}

func (r *StockGormRepository) FindByID(ctx context.Context, stockID int64) (model.Stock, error) {
	var s model.Stock
	err := r.db.WithContext(ctx).First(&s, stockID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Stock{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Stock{}, err
	}
	return s, nil
}

func (r *StockGormRepository) FindByIDForUpdate(ctx context.Context, stockID int64) (model.Stock, error) {
	var s model.Stock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, stockID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Stock{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Stock{}, err
	}
	return s, nil
}

func (r *StockGormRepository) ListByKey(ctx context.Context, key model.StockKey) ([]model.Stock, error) {
	var rows []model.Stock
	if err := r.byKey(ctx, key).Order("location asc").Find(&rows).Error; err != nil {
		return []model.Stock{}, err
	}
	return rows, nil
}

// 指定ロケーションに数量を足す。行がなければ作る。
// 同時に作られても一意制約のON CONFLICTで加算になる。
func (r *StockGormRepository) IncreaseOrCreate(ctx context.Context, key model.StockKey, location model.Location, qty int64) (model.Stock, error) {
	s := model.Stock{
		ProductID:      key.ProductID,
		ColorVariantID: key.ColorVariantID,
		Size:           key.Size,
		Location:       location,
		Quantity:       qty,
	}
	err := r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns: []clause.Column{
					{Name: "product_id"},
					{Name: "color_id"},
					{Name: "size"},
					{Name: "location"},
				},
				DoUpdates: clause.Assignments(map[string]interface{}{
					"quantity":   gorm.Expr("stocks.quantity + EXCLUDED.quantity"),
					"updated_at": gorm.Expr("EXCLUDED.updated_at"),
				}),
			},
			clause.Returning{},
		).
		Create(&s).Error
	if err != nil {
		return model.Stock{}, err
	}
	return s, nil
}

// 在庫の現在値を設定
func (r *StockGormRepository) SetQuantity(ctx context.Context, stockID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Stock{}).
		Where("id = ?", stockID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫戻し（キャンセル）
func (r *StockGormRepository) IncreaseQuantity(ctx context.Context, stockID int64, delta int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Stock{}).
		Where("id = ?", stockID).
		Update("quantity", gorm.Expr("quantity + ?", delta))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

type keyTotalRow struct {
	ProductID int64  `gorm:"column:product_id"`
	ColorID   int64  `gorm:"column:color_id"`
	Size      string `gorm:"column:size"`
	Total     int64  `gorm:"column:total"`
}

func (r *StockGormRepository) SumPhysical(ctx context.Context, keys []model.StockKey, locations []model.Location) (map[model.StockKey]int64, error) {
	out := make(map[model.StockKey]int64, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	tuples := make([][]interface{}, 0, len(keys))
	for _, k := range keys {
		tuples = append(tuples, []interface{}{k.ProductID, k.ColorVariantID, k.Size})
	}

	var rows []keyTotalRow
	err := r.db.WithContext(ctx).
		Model(&model.Stock{}).
		Select("product_id, color_id, size, COALESCE(SUM(quantity), 0) AS total").
		Where("(product_id, color_id, size) IN ?", tuples).
		Where("location IN ?", locationStrings(locations)).
		Group("product_id, color_id, size").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		out[model.StockKey{ProductID: row.ProductID, ColorVariantID: row.ColorID, Size: row.Size}] = row.Total
	}
	return out, nil
}

func (r *StockGormRepository) ListKeysWithPhysical(ctx context.Context, locations []model.Location) ([]model.StockKey, error) {
	var rows []keyTotalRow
	err := r.db.WithContext(ctx).
		Model(&model.Stock{}).
		Distinct("product_id", "color_id", "size").
		Where("location IN ?", locationStrings(locations)).
		Order("product_id, color_id, size").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	keys := make([]model.StockKey, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, model.StockKey{ProductID: row.ProductID, ColorVariantID: row.ColorID, Size: row.Size})
	}
	return keys, nil
}

// onlineの行は (product, color, size, location) の一意制約でupsertする
func (r *StockGormRepository) UpsertOnline(ctx context.Context, key model.StockKey, qty int64) error {
	s := model.Stock{
		ProductID:      key.ProductID,
		ColorVariantID: key.ColorVariantID,
		Size:           key.Size,
		Location:       model.LocationOnline,
		Quantity:       qty,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "product_id"},
				{Name: "color_id"},
				{Name: "size"},
				{Name: "location"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"quantity", "updated_at"}),
		}).
		Create(&s).Error
}

// 変動履歴作成
func (r *StockGormRepository) CreateMovement(ctx context.Context, m model.StockMovement) error {
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	return nil
}

func (r *StockGormRepository) byKey(ctx context.Context, key model.StockKey) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("product_id = ? AND color_id = ? AND size = ?", key.ProductID, key.ColorVariantID, key.Size)
}

func locationStrings(locations []model.Location) []string {
	out := make([]string, 0, len(locations))
	for _, l := range locations {
		out = append(out, string(l))
	}
	return out
}
