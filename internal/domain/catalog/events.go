package catalog

import (
	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/shared"
)

// Event types
const (
	EventTypeInventoryUpdated = "inventory.updated"
	EventTypeInventoryLow     = "inventory.low"
)

// StockChangedEvent is published when a product's stock level changes
type StockChangedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Delta     int       `json:"delta"`
	Threshold int       `json:"threshold"`
}

// NewStockChangedEvent creates an inventory.updated event
func NewStockChangedEvent(p *Product, delta int) *StockChangedEvent {
	return newStockEvent(EventTypeInventoryUpdated, p, delta)
}

// NewLowStockEvent creates an inventory.low event
func NewLowStockEvent(p *Product) *StockChangedEvent {
	return newStockEvent(EventTypeInventoryLow, p, 0)
}

func newStockEvent(eventType string, p *Product, delta int) *StockChangedEvent {
	return &StockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, p.ID),
		ProductID:       p.ID,
		SKU:             p.SKU,
		Name:            p.Name,
		Quantity:        p.StockQuantity,
		Delta:           delta,
		Threshold:       p.LowStockThreshold,
	}
}
