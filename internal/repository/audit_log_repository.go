package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// nilの項目は条件にしない。CreatedToは含まない（半開区間）。
type AuditLogFilter struct {
	ActorUserID  *int64
	Action       *model.AuditAction
	ResourceType *model.AuditResourceType
	ResourceID   *int64
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順。Limitは1..200（0なら50）
	List(ctx context.Context, filter AuditLogFilter) ([]model.AuditLog, error)
}
