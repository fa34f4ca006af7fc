package integration

import (
	"context"
	"time"

	"github.com/stockitup/backend/internal/domain/shared"
)

// ConnectionStatus is the state of a marketplace connection
type ConnectionStatus string

const (
	ConnectionPending      ConnectionStatus = "pending"
	ConnectionActive       ConnectionStatus = "active"
	ConnectionError        ConnectionStatus = "error"
	ConnectionDisconnected ConnectionStatus = "disconnected"
)

// ChannelConnection holds the seller's authorisation for one marketplace
type ChannelConnection struct {
	shared.BaseEntity
	Marketplace    MarketplaceCode  `gorm:"type:varchar(32);not null;uniqueIndex" json:"marketplace"`
	SellerName     string           `gorm:"type:varchar(200)" json:"seller_name"`
	AccessToken    string           `gorm:"type:text" json:"-"`
	RefreshToken   string           `gorm:"type:text" json:"-"`
	TokenExpiresAt *time.Time       `json:"token_expires_at,omitempty"`
	Status         ConnectionStatus `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	// LastSyncAt is when the last successful synchronisation started
	LastSyncAt    *time.Time `json:"last_sync_at,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	// OrdersSyncedUntil is the point up to which every marketplace order has been imported
	OrdersSyncedUntil *time.Time `json:"orders_synced_until,omitempty"`
	LastError         string     `gorm:"type:text" json:"last_error,omitempty"`
	OrdersImported    int        `gorm:"not null;default:0" json:"orders_imported"`
}

// TableName returns the table name for GORM
func (ChannelConnection) TableName() string {
	return "channel_connections"
}

// NewChannelConnection creates a pending connection for a marketplace
func NewChannelConnection(code MarketplaceCode) (*ChannelConnection, error) {
	if !code.IsValid() {
		return nil, ErrUnknownMarketplace
	}
	return &ChannelConnection{
		BaseEntity:  shared.NewBaseEntity(),
		Marketplace: code,
		Status:      ConnectionPending,
	}, nil
}

// Connect stores a fresh token and activates the connection
func (c *ChannelConnection) Connect(token *OAuthToken) {
	c.applyToken(token)
	if token.SellerName != "" {
		c.SellerName = token.SellerName
	}
	c.Status = ConnectionActive
	c.LastError = ""
	c.Touch()
}

// RefreshWith replaces the tokens after a refresh
func (c *ChannelConnection) RefreshWith(token *OAuthToken) {
	c.applyToken(token)
	c.Touch()
}

func (c *ChannelConnection) applyToken(token *OAuthToken) {
	c.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		c.RefreshToken = token.RefreshToken
	}
	if token.ExpiresAt.IsZero() {
		c.TokenExpiresAt = nil
	} else {
		exp := token.ExpiresAt
		c.TokenExpiresAt = &exp
	}
}

// Disconnect forgets the tokens
func (c *ChannelConnection) Disconnect() {
	c.AccessToken = ""
	c.RefreshToken = ""
	c.TokenExpiresAt = nil
	c.Status = ConnectionDisconnected
	c.Touch()
}

// IsActive reports whether the connection can be synchronised
func (c *ChannelConnection) IsActive() bool {
	return c.Status == ConnectionActive || c.Status == ConnectionError
}

// TokenExpired reports whether the access token expires within leeway of now
func (c *ChannelConnection) TokenExpired(now time.Time, leeway time.Duration) bool {
	return c.TokenExpiresAt != nil && !now.Add(leeway).Before(*c.TokenExpiresAt)
}

// OrdersSince returns the point from which orders must be pulled.
// The zero time means everything the marketplace offers.
func (c *ChannelConnection) OrdersSince() time.Time {
	switch {
	case c.OrdersSyncedUntil != nil:
		return *c.OrdersSyncedUntil
	case c.LastSyncAt != nil:
		return *c.LastSyncAt
	}
	return time.Time{}
}

// MarkSynced records a successful synchronisation that started at startedAt.
// ordersUntil advances the order watermark; nil leaves it where it is.
// The watermark never moves backwards.
func (c *ChannelConnection) MarkSynced(startedAt time.Time, ordersUntil *time.Time, imported int) {
	c.LastSyncAt = &startedAt
	c.LastAttemptAt = &startedAt
	if ordersUntil != nil && (c.OrdersSyncedUntil == nil || ordersUntil.After(*c.OrdersSyncedUntil)) {
		until := *ordersUntil
		c.OrdersSyncedUntil = &until
	}
	c.OrdersImported += imported
	c.Status = ConnectionActive
	c.LastError = ""
	c.Touch()
}

// MarkFailed records a failed attempt. The connection stays usable and the next
// sync pulls from the same watermark again.
func (c *ChannelConnection) MarkFailed(at time.Time, err error) {
	c.LastAttemptAt = &at
	c.Status = ConnectionError
	c.LastError = err.Error()
	c.Touch()
}

// ChannelConnectionRepository defines the interface for connection persistence
type ChannelConnectionRepository interface {
	FindByMarketplace(ctx context.Context, code MarketplaceCode) (*ChannelConnection, error)
	FindAll(ctx context.Context) ([]ChannelConnection, error)
	Save(ctx context.Context, conn *ChannelConnection) error
}
