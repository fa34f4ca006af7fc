package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/shared"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindBySKUs(ctx context.Context, skus []string) ([]Product, error)
	// FindAll lists products matching the filter's Search (sku, name or ean) with pagination
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, int64, error)
	// FindAllUnpaged returns every product, for duplicate detection and stock pushes
	FindAllUnpaged(ctx context.Context) ([]Product, error)
	FindLowStock(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, product *Product) error
	// SaveWithLock updates a stored product only if its version is unchanged since
	// it was read, then increments the version. A lost race is ErrConcurrentUpdate.
	SaveWithLock(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	Count(ctx context.Context) (int64, error)
}
