package persistence

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/catalog"
	"github.com/stockitup/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "product")
	}
	return &product, nil
}

// FindBySKU finds a product by its SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).Where("sku = ?", strings.TrimSpace(sku)).First(&product).Error; err != nil {
		return nil, translateError(err, "product")
	}
	return &product, nil
}

// FindBySKUs finds the products carrying any of the given SKUs
func (r *GormProductRepository) FindBySKUs(ctx context.Context, skus []string) ([]catalog.Product, error) {
	if len(skus) == 0 {
		return []catalog.Product{}, nil
	}
	var products []catalog.Product
	if err := r.db.WithContext(ctx).Where("sku IN ?", skus).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindAll finds a page of products matching the filter
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Product{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(sku) LIKE ? OR LOWER(name) LIKE ? OR ean LIKE ?", like, like, like)
	}
	if low, ok := filter.Filters["low_stock"].(bool); ok && low {
		query = query.Where("stock_quantity <= low_stock_threshold")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []catalog.Product
	query = query.Order(orderClause(filter, ProductSortFields, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// FindAllUnpaged returns every product ordered by SKU
func (r *GormProductRepository) FindAllUnpaged(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := r.db.WithContext(ctx).Order("sku ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// FindLowStock finds products at or below their low stock threshold
func (r *GormProductRepository) FindLowStock(ctx context.Context) ([]catalog.Product, error) {
	var products []catalog.Product
	if err := r.db.WithContext(ctx).
		Where("stock_quantity <= low_stock_threshold").
		Order("stock_quantity ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return translateError(r.db.WithContext(ctx).Save(product).Error, "product")
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormProductRepository) SaveWithLock(ctx context.Context, product *catalog.Product) error {
	result := r.db.WithContext(ctx).
		Model(&catalog.Product{}).
		Where("id = ? AND version = ?", product.ID, product.Version).
		Updates(map[string]any{
			"sku":                 product.SKU,
			"ean":                 product.EAN,
			"name":                product.Name,
			"description":         product.Description,
			"price":               product.Price,
			"currency":            product.Currency,
			"stock_quantity":      product.StockQuantity,
			"low_stock_threshold": product.LowStockThreshold,
			"image_key":           product.ImageKey,
			"version":             product.Version + 1,
			"updated_at":          product.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error, "product")
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.ErrConcurrentUpdate.Code, "Product "+product.SKU+" was modified by another request")
	}
	product.Version++
	return nil
}

// Delete deletes a product by ID
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.Product{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NotFound("product")
	}
	return nil
}

// ExistsBySKU reports whether a product with the SKU exists
func (r *GormProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&catalog.Product{}).Where("sku = ?", sku).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns the number of products
func (r *GormProductRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&catalog.Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
