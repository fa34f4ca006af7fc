package partner

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence contract shared by the partner entities
type Repository[T any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindAll(ctx context.Context) ([]T, error)
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int64, error)
}

type (
	AddressRepository   = Repository[Address]
	SellerRepository    = Repository[Seller]
	FulfillerRepository = Repository[Fulfiller]
	WarehouseRepository = Repository[Warehouse]
)
