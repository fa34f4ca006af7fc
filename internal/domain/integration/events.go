package integration

import (
	"github.com/stockitup/backend/internal/domain/shared"
)

// Event types
const (
	EventTypeSyncCompleted = "sync.completed"
	EventTypeSyncFailed    = "sync.failed"
)

// SyncEvent is published after a marketplace synchronisation run
type SyncEvent struct {
	shared.BaseDomainEvent
	Marketplace    MarketplaceCode `json:"marketplace"`
	OrdersImported int             `json:"orders_imported"`
	StockPushed    int             `json:"stock_pushed"`
	Error          string          `json:"error,omitempty"`
}

// NewSyncEvent creates a sync.completed event, or sync.failed when err is set
func NewSyncEvent(conn *ChannelConnection, imported, pushed int, err error) *SyncEvent {
	e := &SyncEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSyncCompleted, conn.ID),
		Marketplace:     conn.Marketplace,
		OrdersImported:  imported,
		StockPushed:     pushed,
	}
	if err != nil {
		e.Type = EventTypeSyncFailed
		e.Error = err.Error()
	}
	return e
}
