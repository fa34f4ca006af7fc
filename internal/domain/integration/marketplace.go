package integration

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownMarketplace         = errors.New("integration: unknown marketplace")
	ErrMarketplaceNotConfigured   = errors.New("integration: marketplace credentials not configured")
	ErrMarketplaceNotConnected    = errors.New("integration: marketplace not connected")
	ErrMarketplaceAuthFailed      = errors.New("integration: marketplace authentication failed")
	ErrMarketplaceRateLimited     = errors.New("integration: marketplace rate limited")
	ErrMarketplaceUnavailable     = errors.New("integration: marketplace temporarily unavailable")
	ErrMarketplaceInvalidResponse = errors.New("integration: invalid marketplace response")
	ErrInvalidOAuthState          = errors.New("integration: invalid or expired oauth state")
)

// MarketplaceCode identifies a sales channel
type MarketplaceCode string

const (
	MarketplaceBolCom   MarketplaceCode = "bol_com"
	MarketplaceAmazonEU MarketplaceCode = "amazon_eu"
	MarketplaceEBay     MarketplaceCode = "ebay"
)

// AllMarketplaces lists the supported marketplaces in display order
var AllMarketplaces = []MarketplaceCode{MarketplaceBolCom, MarketplaceAmazonEU, MarketplaceEBay}

// IsValid returns true if the marketplace is supported
func (c MarketplaceCode) IsValid() bool {
	switch c {
	case MarketplaceBolCom, MarketplaceAmazonEU, MarketplaceEBay:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the marketplace
func (c MarketplaceCode) DisplayName() string {
	switch c {
	case MarketplaceBolCom:
		return "bol.com"
	case MarketplaceAmazonEU:
		return "Amazon EU"
	case MarketplaceEBay:
		return "eBay"
	}
	return string(c)
}

// OAuthToken is the credential pair returned by a marketplace authorization server
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	SellerName   string
}

// MarketplaceOrderItem is one line of an order as reported by a marketplace
type MarketplaceOrderItem struct {
	SKU       string
	EAN       string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// MarketplaceOrder is an order as reported by a marketplace
type MarketplaceOrder struct {
	ExternalID      string
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	Currency        string
	Items           []MarketplaceOrderItem
	PlacedAt        time.Time
}

// StockUpdate is the stock level to publish for one offer
type StockUpdate struct {
	SKU      string
	EAN      string
	Quantity int
}

// SyncFailure describes one item that could not be synchronised
type SyncFailure struct {
	Item    string `json:"item"`
	Message string `json:"message"`
}

// StockPushResult summarises a stock push
type StockPushResult struct {
	Updated int
	Failed  []SyncFailure
}

// Marketplace is the port implemented by every marketplace API client
type Marketplace interface {
	Code() MarketplaceCode
	// Configured reports whether OAuth client credentials are available
	Configured() bool
	AuthorizeURL(state, redirectURI string) (string, error)
	ExchangeCode(ctx context.Context, code, redirectURI string) (*OAuthToken, error)
	RefreshToken(ctx context.Context, refreshToken string) (*OAuthToken, error)
	PullOrders(ctx context.Context, accessToken string, since time.Time) ([]MarketplaceOrder, error)
	PushStock(ctx context.Context, accessToken string, updates []StockUpdate) (*StockPushResult, error)
}

// MarketplaceRegistry gives access to the configured marketplace clients
type MarketplaceRegistry interface {
	Get(code MarketplaceCode) (Marketplace, error)
	List() []Marketplace
}
