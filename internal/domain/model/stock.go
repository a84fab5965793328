package model

import (
	"fmt"
	"time"
)

// 在庫のロケーション（倉庫/店舗）
type Location string

// ネットショップ用の擬似ロケーション。数量は0/1の在庫有無フラグ。
const LocationOnline Location = "online"

func (l Location) IsOnline() bool { return l == LocationOnline }

// 在庫を管理する粒度（商品・カラー・サイズ）
type StockKey struct {
	ProductID      int64  `json:"product_id"`
	ColorVariantID int64  `json:"color_variant_id"`
	Size           string `json:"size"`
}

func (k StockKey) String() string {
	return fmt.Sprintf("%d/%d/%s", k.ProductID, k.ColorVariantID, k.Size)
}

// ロック順を揃えるための比較
func (k StockKey) Less(o StockKey) bool {
	if k.ProductID != o.ProductID {
		return k.ProductID < o.ProductID
	}
	if k.ColorVariantID != o.ColorVariantID {
		return k.ColorVariantID < o.ColorVariantID
	}
	return k.Size < o.Size
}

// 在庫台帳の1行。(product, color, size, location) で一意。
type Stock struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID      int64     `gorm:"not null;uniqueIndex:idx_stock_tuple_location,priority:1" json:"product_id"`
	ColorVariantID int64     `gorm:"column:color_id;not null;uniqueIndex:idx_stock_tuple_location,priority:2" json:"color_id"`
	Size           string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_stock_tuple_location,priority:3" json:"size"`
	Location       Location  `gorm:"type:varchar(50);not null;uniqueIndex:idx_stock_tuple_location,priority:4" json:"location"`
	Quantity       int64     `gorm:"not null;default:0;check:quantity >= 0" json:"quantity"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (s Stock) Key() StockKey {
	return StockKey{ProductID: s.ProductID, ColorVariantID: s.ColorVariantID, Size: s.Size}
}

// 物理在庫の合計からネット在庫フラグを決める
func OnlineFlag(physicalTotal int64) int64 {
	if physicalTotal > 0 {
		return 1
	}
	return 0
}
