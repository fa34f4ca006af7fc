package trade

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/shared"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByReference(ctx context.Context, channel, reference string) (*Order, error)
	// FindAll supports the "status" and "channel" filters and Search over reference and customer
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, int64, error)
	FindOpen(ctx context.Context) ([]Order, error)
	FindSince(ctx context.Context, since time.Time) ([]Order, error)
	Save(ctx context.Context, order *Order) error
	CountByStatus(ctx context.Context) (map[OrderStatus]int64, error)
}
