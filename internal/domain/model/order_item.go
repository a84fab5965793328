package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。作成後は変更しない。
type OrderItem struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        int64           `gorm:"not null;index" json:"order_id"`
	ProductID      int64           `gorm:"not null;index" json:"product_id"`
	ColorVariantID int64           `gorm:"not null;index" json:"color_variant_id"`
	SizeID         int64           `gorm:"not null" json:"size_id"`
	Quantity       int64           `gorm:"not null" json:"quantity"`
	Price          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`

	Product      *Product      `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	ColorVariant *ColorVariant `gorm:"foreignKey:ColorVariantID" json:"color_variant,omitempty"`
	Size         *Size         `gorm:"foreignKey:SizeID" json:"size,omitempty"`
}

// 在庫を引き当てる単位
func (it OrderItem) StockKey() StockKey {
	size := ""
	if it.Size != nil {
		size = it.Size.Value
	}
	return StockKey{ProductID: it.ProductID, ColorVariantID: it.ColorVariantID, Size: size}
}
