package model

import "time"

type MovementReason string

const (
	// 注文確定での引当（マイナス）
	MovementAllocate MovementReason = "ALLOCATE"
	// キャンセルでの戻し（プラス）
	MovementRestore MovementReason = "RESTORE"
	// 管理画面からの数量変更
	MovementAdjust MovementReason = "ADJUST"
)

// 在庫変動の履歴（追記のみ）
type StockMovement struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	StockID        int64          `gorm:"not null;index" json:"stock_id"`
	OrderID        *int64         `gorm:"index" json:"order_id,omitempty"`
	ActorUserID    *int64         `gorm:"index" json:"actor_user_id,omitempty"`
	ProductID      int64          `gorm:"not null;index" json:"product_id"`
	ColorVariantID int64          `gorm:"column:color_id;not null" json:"color_id"`
	Size           string         `gorm:"type:varchar(50);not null" json:"size"`
	Location       Location       `gorm:"type:varchar(50);not null" json:"location"`
	Reason         MovementReason `gorm:"type:varchar(20);not null;index" json:"reason"`
	Delta          int64          `gorm:"not null" json:"delta"`
	Before         int64          `gorm:"not null" json:"before"`
	After          int64          `gorm:"not null" json:"after"`
	CreatedAt      time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func NewMovement(s Stock, reason MovementReason, before, after int64) StockMovement {
	return StockMovement{
		StockID:        s.ID,
		ProductID:      s.ProductID,
		ColorVariantID: s.ColorVariantID,
		Size:           s.Size,
		Location:       s.Location,
		Reason:         reason,
		Delta:          after - before,
		Before:         before,
		After:          after,
	}
}
