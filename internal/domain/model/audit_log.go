package model

import "time"

// 管理者の操作の種類
type AuditAction string

const (
	AuditActionUpdateStock       AuditAction = "UPDATE_STOCK"
	AuditActionUpdateOrderStatus AuditAction = "UPDATE_ORDER_STATUS"
	// onlineフラグの全件再計算
	AuditActionRecalculateOnline AuditAction = "RECALCULATE_ONLINE"
)

// 何に対する操作か
type AuditResourceType string

const (
	AuditResourceStock AuditResourceType = "stock"
	AuditResourceOrder AuditResourceType = "order"
)

// 管理者操作の記録。注文・在庫の更新と同じTxで書く。
// before/afterは変わった項目だけのJSON（例: {"status":"PENDING"}）。
type AuditLog struct {
	ID           int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ActorUserID  int64             `gorm:"not null;index" json:"actor_user_id"`
	Action       AuditAction       `gorm:"type:varchar(50);not null;index" json:"action"`
	ResourceType AuditResourceType `gorm:"type:varchar(50);not null;index:idx_audit_resource,priority:1" json:"resource_type"`
	ResourceID   int64             `gorm:"not null;index:idx_audit_resource,priority:2" json:"resource_id"`
	BeforeJSON   string            `gorm:"type:jsonb;not null;default:'{}'" json:"before"`
	AfterJSON    string            `gorm:"type:jsonb;not null;default:'{}'" json:"after"`
	CreatedAt    time.Time         `gorm:"not null;index" json:"created_at"`
}
