package domain

import "time"

const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
)

type OrderEvent struct {
	OrderID       string      `json:"orderId"`
	OrderCode     string      `json:"orderCode,omitempty"`
	Status        OrderStatus `json:"status,omitempty"`
	ParentOrderID *string     `json:"parentOrderId,omitempty"`
	OccurredAt    time.Time   `json:"occurredAt"`
}
