package persistence

import (
	"context"

	"github.com/stockitup/backend/internal/domain/integration"
	"gorm.io/gorm"
)

// GormChannelConnectionRepository implements ChannelConnectionRepository using GORM
type GormChannelConnectionRepository struct {
	db *gorm.DB
}

// NewGormChannelConnectionRepository creates a new GormChannelConnectionRepository
func NewGormChannelConnectionRepository(db *gorm.DB) *GormChannelConnectionRepository {
	return &GormChannelConnectionRepository{db: db}
}

// FindByMarketplace finds the connection for a marketplace
func (r *GormChannelConnectionRepository) FindByMarketplace(ctx context.Context, code integration.MarketplaceCode) (*integration.ChannelConnection, error) {
	var conn integration.ChannelConnection
	if err := r.db.WithContext(ctx).Where("marketplace = ?", code).First(&conn).Error; err != nil {
		return nil, translateError(err, "channel connection")
	}
	return &conn, nil
}

// FindAll returns every connection ordered by marketplace
func (r *GormChannelConnectionRepository) FindAll(ctx context.Context) ([]integration.ChannelConnection, error) {
	var conns []integration.ChannelConnection
	if err := r.db.WithContext(ctx).Order("marketplace ASC").Find(&conns).Error; err != nil {
		return nil, err
	}
	return conns, nil
}

// Save creates or updates a connection
func (r *GormChannelConnectionRepository) Save(ctx context.Context, conn *integration.ChannelConnection) error {
	return translateError(r.db.WithContext(ctx).Save(conn).Error, "channel connection")
}

var _ integration.ChannelConnectionRepository = (*GormChannelConnectionRepository)(nil)
