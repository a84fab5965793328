package usecase

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// UUID 等のIDを作る約束
type IDGenerator interface {
	NewID() string
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

// 注文イベントを外（Kafka等）へ配る約束。コミット後に呼ぶ。
type OrderEventPublisher interface {
	PublishStatusChanged(ctx context.Context, ev model.OrderStatusChanged) error
}

type noopOrderEventPublisher struct{}

func (noopOrderEventPublisher) PublishStatusChanged(context.Context, model.OrderStatusChanged) error {
	return nil
}
