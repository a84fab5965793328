package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// カタログ側の商品。このサービスでは参照のみ。
type Product struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// 商品のカラー展開
type ColorVariant struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64  `gorm:"not null;index" json:"product_id"`
	Color     string `gorm:"type:varchar(100);not null" json:"color"`
}

// サイズ（XS, M, 4ans, Standard など）
type Size struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Value string `gorm:"type:varchar(50);not null;uniqueIndex" json:"value"`
}
