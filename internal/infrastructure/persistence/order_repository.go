package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stockitup/backend/internal/domain/shared"
	"github.com/stockitup/backend/internal/domain/trade"
	"gorm.io/gorm"
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sku ASC")
	})
}

// FindByID finds an order and its items by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var order trade.Order
	if err := r.withItems(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "order")
	}
	return &order, nil
}

// FindByReference finds an order by its channel reference
func (r *GormOrderRepository) FindByReference(ctx context.Context, channel, reference string) (*trade.Order, error) {
	var order trade.Order
	if err := r.withItems(ctx).
		Where("channel = ? AND reference = ?", channel, reference).
		First(&order).Error; err != nil {
		return nil, translateError(err, "order")
	}
	return &order, nil
}

// FindAll finds a page of orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&trade.Order{})
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if channel, ok := filter.Filters["channel"].(string); ok && channel != "" {
		query = query.Where("channel = ?", channel)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(reference) LIKE ? OR LOWER(customer_name) LIKE ? OR LOWER(customer_email) LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []trade.Order
	query = query.Preload("Items").Order(orderClause(filter, OrderSortFields, "created_at"))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// FindOpen returns new and processing orders, oldest first
func (r *GormOrderRepository) FindOpen(ctx context.Context) ([]trade.Order, error) {
	var orders []trade.Order
	if err := r.withItems(ctx).
		Where("status IN ?", []trade.OrderStatus{trade.OrderStatusNew, trade.OrderStatusProcessing}).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// FindSince returns orders created at or after since
func (r *GormOrderRepository) FindSince(ctx context.Context, since time.Time) ([]trade.Order, error) {
	var orders []trade.Order
	if err := r.withItems(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Save creates or updates an order, replacing its items
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(order).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&trade.OrderItem{}).Error; err != nil {
			return err
		}
		if len(order.Items) == 0 {
			return nil
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			if order.Items[i].ID == uuid.Nil {
				order.Items[i].ID = uuid.New()
			}
		}
		return tx.Create(&order.Items).Error
	})
	return translateError(err, "order")
}

// CountByStatus returns the number of orders per status
func (r *GormOrderRepository) CountByStatus(ctx context.Context) (map[trade.OrderStatus]int64, error) {
	var rows []struct {
		Status trade.OrderStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).Model(&trade.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	counts := make(map[trade.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)
