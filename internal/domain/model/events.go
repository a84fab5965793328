package model

import "time"

// 注文ステータスが変わったことを外に知らせるイベント
type OrderStatusChanged struct {
	EventID     string      `json:"event_id"`
	OrderID     int64       `json:"order_id"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
	ActorUserID int64       `json:"actor_user_id"`
	OccurredAt  time.Time   `json:"occurred_at"`
}
