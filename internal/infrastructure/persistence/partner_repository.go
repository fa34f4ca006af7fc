package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/partner"
	"github.com/stockitup/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormPartnerRepository implements partner.Repository for any partner entity
type GormPartnerRepository[T any] struct {
	db       *gorm.DB
	resource string
}

// NewGormPartnerRepository creates a repository for T; resource names it in errors
func NewGormPartnerRepository[T any](db *gorm.DB, resource string) *GormPartnerRepository[T] {
	return &GormPartnerRepository[T]{db: db, resource: resource}
}

// NewGormAddressRepository creates the address repository
func NewGormAddressRepository(db *gorm.DB) partner.AddressRepository {
	return NewGormPartnerRepository[partner.Address](db, "address")
}

// NewGormSellerRepository creates the seller repository
func NewGormSellerRepository(db *gorm.DB) partner.SellerRepository {
	return NewGormPartnerRepository[partner.Seller](db, "seller")
}

// NewGormFulfillerRepository creates the fulfiller repository
func NewGormFulfillerRepository(db *gorm.DB) partner.FulfillerRepository {
	return NewGormPartnerRepository[partner.Fulfiller](db, "fulfiller")
}

// NewGormWarehouseRepository creates the warehouse repository
func NewGormWarehouseRepository(db *gorm.DB) partner.WarehouseRepository {
	return NewGormPartnerRepository[partner.Warehouse](db, "warehouse")
}

// FindByID finds an entity by its ID
func (r *GormPartnerRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		return nil, translateError(err, r.resource)
	}
	return &entity, nil
}

// FindAll returns every entity, oldest first
func (r *GormPartnerRepository[T]) FindAll(ctx context.Context) ([]T, error) {
	var entities []T
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&entities).Error; err != nil {
		return nil, err
	}
	return entities, nil
}

// Save creates or updates an entity
func (r *GormPartnerRepository[T]) Save(ctx context.Context, entity *T) error {
	return translateError(r.db.WithContext(ctx).Save(entity).Error, r.resource)
}

// Delete deletes an entity by ID
func (r *GormPartnerRepository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	var entity T
	result := r.db.WithContext(ctx).Delete(&entity, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound(r.resource)
	}
	return nil
}

// Count returns the number of entities
func (r *GormPartnerRepository[T]) Count(ctx context.Context) (int64, error) {
	var count int64
	var entity T
	if err := r.db.WithContext(ctx).Model(&entity).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
