package trade

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockitup/backend/internal/domain/shared"
)

// Event types
const (
	EventTypeOrderReceived      = "order.received"
	EventTypeOrderStatusChanged = "order.status_changed"
)

// OrderEvent is published when an order arrives or changes status
type OrderEvent struct {
	shared.BaseDomainEvent
	OrderID   uuid.UUID       `json:"order_id"`
	Reference string          `json:"reference"`
	Channel   string          `json:"channel"`
	Status    OrderStatus     `json:"status"`
	Previous  OrderStatus     `json:"previous_status,omitempty"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
}

// NewOrderReceivedEvent creates an order.received event
func NewOrderReceivedEvent(o *Order) *OrderEvent {
	return newOrderEvent(EventTypeOrderReceived, o, "")
}

// NewOrderStatusChangedEvent creates an order.status_changed event
func NewOrderStatusChangedEvent(o *Order, previous OrderStatus) *OrderEvent {
	return newOrderEvent(EventTypeOrderStatusChanged, o, previous)
}

func newOrderEvent(eventType string, o *Order, previous OrderStatus) *OrderEvent {
	return &OrderEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, o.ID),
		OrderID:         o.ID,
		Reference:       o.Reference,
		Channel:         o.Channel,
		Status:          o.Status,
		Previous:        previous,
		Total:           o.Total,
		Currency:        o.Currency,
	}
}
