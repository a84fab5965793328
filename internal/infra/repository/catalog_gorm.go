package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type CatalogGormRepository struct {
	db *gorm.DB
}

func NewCatalogGormRepository(db *gorm.DB) *CatalogGormRepository {
	return &CatalogGormRepository{db: db}
}

func (r *CatalogGormRepository) FindProduct(ctx context.Context, productID int64) (model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 商品IDとカラー名からカラー展開を1件取得
func (r *CatalogGormRepository) FindColorVariant(ctx context.Context, productID int64, color string) (model.ColorVariant, error) {
	var cv model.ColorVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND color = ?", productID, color).
		First(&cv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ColorVariant{}, repo.ErrNotFound
	}
	if err != nil {
		return model.ColorVariant{}, err
	}
	return cv, nil
}

func (r *CatalogGormRepository) FindSizeByValue(ctx context.Context, value string) (model.Size, error) {
	var s model.Size
	err := r.db.WithContext(ctx).Where("value = ?", value).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Size{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Size{}, err
	}
	return s, nil
}
